package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

// Applies the SQL files under migrations/family and migrations/sealed.
// The two stores are separate databases on purpose; each target has its
// own DSN and its own migration directory.
func main() {
	target := "all"
	if len(os.Args) > 1 {
		target = os.Args[1]
	}

	switch target {
	case "family":
		migrate("family", os.Getenv("FAMILY_DATABASE_URL"))
	case "sealed":
		migrate("sealed", os.Getenv("SEALED_DATABASE_URL"))
	case "all":
		migrate("family", os.Getenv("FAMILY_DATABASE_URL"))
		migrate("sealed", os.Getenv("SEALED_DATABASE_URL"))
	default:
		log.Fatalf("unknown target %q (want family, sealed, or all)", target)
	}
}

func migrate(store, dsn string) {
	if dsn == "" {
		log.Fatalf("%s: DSN env var is required", store)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("%s: connect: %v", store, err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("%s: ping: %v", store, err)
	}
	log.Printf("%s: connected", store)

	dir := filepath.Join("migrations", store)
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("%s: read migrations dir %s: %v", store, dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var okCount, errCount int
	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("%s: read %s: %v", store, path, err)
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			continue
		}
		fmt.Printf("  %s/%s ... ", store, f)

		tx, err := db.Begin()
		if err != nil {
			fmt.Printf("BEGIN ERROR: %v\n", err)
			errCount++
			continue
		}
		if _, err := tx.Exec(content); err != nil {
			tx.Rollback()
			fmt.Printf("ERROR: %v\n", err)
			errCount++
		} else {
			tx.Commit()
			fmt.Println("OK")
			okCount++
		}
	}
	log.Printf("%s: done, %d OK, %d errors", store, okCount, errCount)
}
