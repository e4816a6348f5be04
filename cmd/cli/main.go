package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aurora-borealis222/url-shortener/pkg/adapters/repository/sqlite"
	"github.com/aurora-borealis222/url-shortener/pkg/config"
	"github.com/aurora-borealis222/url-shortener/pkg/core/domain"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")

	if len(os.Args) < 2 {
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}

	cfg := config.Load()
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	defer repo.Close()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		doExport(repo)
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		doImport(repo, *importFile)
	default:
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}
}

// doExport writes every link row, tombstones included, as indented JSON.
func doExport(repo *sqlite.SQLiteRepository) {
	links, err := repo.Dump(context.Background())
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(links); err != nil {
		log.Fatalf("Encode failed: %v", err)
	}
}

func doImport(repo *sqlite.SQLiteRepository, filename string) {
	file, err := os.Open(filename)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer file.Close()

	var links []domain.Link
	if err := json.NewDecoder(file).Decode(&links); err != nil {
		log.Fatalf("Failed to decode JSON: %v", err)
	}

	imported := 0
	for i := range links {
		link := links[i]
		link.ID = 0 // let the store assign ids
		if err := repo.Insert(context.Background(), &link); err != nil {
			log.Printf("Skipping %s: %v", link.ShortCode, err)
			continue
		}
		imported++
	}
	fmt.Printf("Imported %d of %d links\n", imported, len(links))
}
