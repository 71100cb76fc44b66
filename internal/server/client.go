package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/leslobov/ameba/internal/engine"
	"github.com/leslobov/ameba/internal/store"
	"github.com/leslobov/ameba/pkg/api"
	"github.com/leslobov/ameba/pkg/logger"
	"github.com/leslobov/ameba/pkg/utils"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между Websocket и контроллером
type Client struct {
	ID   string
	Srv  *Server
	Conn *websocket.Conn
	// Send ответы на команды этого зрителя
	Send chan api.ViewerMessage

	boards  <-chan store.Update
	notices <-chan engine.Notice
	done    chan struct{}
	log     *logrus.Entry
}

func NewClient(srv *Server, conn *websocket.Conn) *Client {
	id := utils.GenerateID()
	return &Client{
		ID:      id,
		Srv:     srv,
		Conn:    conn,
		Send:    make(chan api.ViewerMessage, 64),
		boards:  srv.Controller.Store().Subscribe(id),
		notices: srv.Controller.SubscribeNotices(id),
		done:    make(chan struct{}),
		log:     logger.Log.WithFields(logrus.Fields{"component": "server", "viewer_id": id}),
	}
}

// readPump читает команды от зрителя
func (c *Client) readPump() {
	defer func() {
		close(c.done)
		c.Srv.Controller.Store().Unsubscribe(c.ID)
		c.Srv.Controller.UnsubscribeNotices(c.ID)
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection")
		}
		c.log.Info("Viewer disconnected")
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	c.log.Info("Viewer connected")
	c.reply([]api.ViewerMessage{c.Srv.sessionMessage()})

	for {
		var cmd api.ViewerCommand
		err := c.Conn.ReadJSON(&cmd)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Errorf("WS Error: %v", err)
			}
			break
		}
		// Шаг может идти долго, чтение команд не ждет его
		go c.reply(c.Srv.Dispatch(c.Srv.ctx, cmd))
	}
}

func (c *Client) reply(msgs []api.ViewerMessage) {
	for _, m := range msgs {
		select {
		case c.Send <- m:
		case <-c.done:
			return
		default:
			c.log.WithField("type", m.Type).Warn("viewer send buffer full, reply dropped")
		}
	}
}

// writePump отправляет данные зрителю + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		var message api.ViewerMessage

		select {
		case <-c.done:
			return

		case u, ok := <-c.boards:
			if !ok {
				c.writeClose()
				return
			}
			message = api.ViewerMessage{Type: api.MessageBoard, Generation: u.Generation, Board: BoardView(u.Board)}

		case n, ok := <-c.notices:
			if !ok {
				c.notices = nil
				continue
			}
			message = noticeMessage(n)

		case message = <-c.Send:

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
			continue
		}

		if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			c.log.WithError(err).Warn("failed to set write deadline")
		}
		if err := c.Conn.WriteJSON(message); err != nil {
			c.log.WithError(err).Debug("write json message failed")
			return
		}
	}
}

func (c *Client) writeClose() {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.WithError(err).Debug("failed to set write deadline")
	}
	if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		c.log.WithError(err).Debug("write close message failed")
	}
}
