package main

import (
	"context"
	"flag"
	"log/slog"

	"ticketboss/internal/logger"
	"ticketboss/internal/validation"
)

func main() {
	var baseURL string
	flag.StringVar(&baseURL, "url", "http://localhost:8081", "Base URL for API validation")
	flag.Parse()

	logger.Init("info", "text")
	slog.Info("Starting API validation", "url", baseURL)

	report, err := validation.NewValidator(baseURL).ValidateAll(context.Background())
	if err != nil {
		logger.Fatal("❌ Валидация не пройдена", "error", err)
	}

	slog.Info("✅ Валидация успешно пройдена!",
		"accepted", report.Accepted,
		"conflicts", report.Conflicts)
}
