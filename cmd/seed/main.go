package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
)

// Used when no -file is given.
const defaultDepartments = `CSE,Computer Science and Engineering
EEE,Electrical and Electronic Engineering
CE,Civil Engineering
ME,Mechanical Engineering
BBA,Business Administration
ENG,English
`

func main() {
	filePath := flag.String("file", "", "Path to a department list (CODE,Name per line)")
	flag.Parse()

	var src io.Reader = strings.NewReader(defaultDepartments)
	if *filePath != "" {
		f, err := os.Open(*filePath)
		if err != nil {
			log.Fatalf("Failed to open department list: %v", err)
		}
		defer f.Close()
		src = f
	}

	departments, err := parseDepartments(src)
	if err != nil {
		log.Fatalf("Failed to parse department list: %v", err)
	}
	log.Printf("Loaded %d departments", len(departments))

	cfg := config.Load()
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	directory := services.NewDirectoryService(services.StoresFrom(repository.New(database.DB)))
	inserted, skipped := seed(context.Background(), directory, departments)
	log.Printf("Seeding complete. inserted=%d skipped=%d", inserted, skipped)
}

type departmentCreator interface {
	CreateDepartment(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error)
}

// seed creates each department, skipping codes that already exist.
func seed(ctx context.Context, directory departmentCreator, departments []dto.CreateDepartmentRequest) (inserted, skipped int) {
	for _, d := range departments {
		_, err := directory.CreateDepartment(ctx, d)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, services.ErrDuplicateDepartment):
			skipped++
		default:
			log.Printf("Failed to create %s: %v", d.Code, err)
			skipped++
		}
	}
	return inserted, skipped
}

// parseDepartments reads "CODE,Name" lines. Blank lines and # comments are
// skipped.
func parseDepartments(r io.Reader) ([]dto.CreateDepartmentRequest, error) {
	var out []dto.CreateDepartmentRequest
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		code, name, ok := strings.Cut(text, ",")
		code, name = strings.TrimSpace(code), strings.TrimSpace(name)
		if !ok || code == "" || name == "" {
			return nil, fmt.Errorf("line %d: want CODE,Name", line)
		}
		out = append(out, dto.CreateDepartmentRequest{Code: code, Name: name})
	}
	return out, scanner.Err()
}
