package server

import (
	"net/http"

	"github.com/referolabs/refero/internal/handlers"
)

// setupRoutes wires all HTTP endpoints
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	apiHandler := handlers.NewAPIHandler()
	authHandler := handlers.NewAuthHandler(s.app.Auth, s.app.Logger)
	reportHandler := handlers.NewReportHandler(s.app.Reports, s.app.Assembler, s.app.Reprocessor, s.app.Logger)

	// Service endpoints
	mux.HandleFunc("/api/health", apiHandler.Health)
	mux.HandleFunc("/api/version", apiHandler.Version)

	// Accounts
	mux.HandleFunc("/api/register", authHandler.Register)
	mux.HandleFunc("/api/token", authHandler.Token)

	// Report lifecycle
	mux.HandleFunc("/api/generate_report", reportHandler.Generate)
	mux.HandleFunc("/api/generate_recommend_main_sections", reportHandler.RecommendSections)
	mux.HandleFunc("/api/check_result", reportHandler.CheckResult)
	mux.HandleFunc("/api/get_report", reportHandler.GetReport)
	mux.HandleFunc("/api/download_report", reportHandler.DownloadReport)
	mux.HandleFunc("/api/reprocess_content", reportHandler.Reprocess)
	mux.HandleFunc("/api/save_reprocessed_content", reportHandler.SaveReprocessed)
	mux.HandleFunc("/api/delete_report", reportHandler.DeleteReport)

	return mux
}
