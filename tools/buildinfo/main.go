package main

import (
	"fmt"
	"os"
	"time"

	"github.com/leslobov/ameba/internal/version"
)

const pkgPath = "github.com/leslobov/ameba/internal/version"

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	switch os.Args[1] {
	case "today":
		fmt.Println(time.Now().UTC().Format(version.DateLayout))
	case "id":
		date := time.Now().UTC().Format(version.DateLayout)
		if len(os.Args) >= 3 {
			date = os.Args[2]
		}
		id, err := version.BuildIDFor(date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid date: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(id)
	case "ldflags":
		fmt.Println(ldflags(time.Now().UTC(), os.Getenv("GIT_COMMIT"), os.Getenv("GIT_BRANCH"), os.Getenv("CI_NAME")))
	default:
		printHelp()
	}
}

// ldflags строка для go build -ldflags. Пустые значения пропускаются.
func ldflags(now time.Time, commit, branch, ci string) string {
	s := fmt.Sprintf("-X %s.BuildDate=%s", pkgPath, now.Format(version.DateLayout))
	vars := [][2]string{{"BuildCommit", commit}, {"BuildBranch", branch}, {"BuildCI", ci}}
	for _, kv := range vars {
		if kv[1] != "" {
			s += fmt.Sprintf(" -X %s.%s=%s", pkgPath, kv[0], kv[1])
		}
	}
	return s
}

func printHelp() {
	fmt.Println(`Build info - метаданные сборки клиента
Commands:
  today          - дата сборки в формате BuildDate (UTC)
  id [date]      - номер сборки для даты YYYY-MM-DD (по умолчанию сегодня)
  ldflags        - флаги -ldflags для go build (GIT_COMMIT, GIT_BRANCH, CI_NAME из окружения)`)
}
