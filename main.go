package main

import (
	"log"

	"turnscribe/ai"
	"turnscribe/audio"
	"turnscribe/internal/api"
	"turnscribe/internal/config"
	"turnscribe/internal/service"
	"turnscribe/models"
	"turnscribe/session"
)

func main() {
	log.Println("turnscribe backend starting...")

	cfg := config.Load()
	log.Printf("Recognition model: %s", cfg.ModelPath)
	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("Models directory: %s", cfg.ModelsDir)

	sessionMgr, err := session.NewManager(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to init session manager: %v", err)
	}

	modelMgr, err := models.NewManager(cfg.ModelsDir)
	if err != nil {
		log.Fatalf("Failed to init model manager: %v", err)
	}

	capture, err := audio.NewCapture()
	if err != nil {
		log.Fatalf("Failed to init audio capture: %v", err)
	}

	engineMgr := ai.NewEngineManager(modelMgr)

	transcriptionService := service.NewTranscriptionService(sessionMgr, engineMgr)
	recordingService := service.NewRecordingService(sessionMgr, capture)

	wantDiarization := cfg.DiarizationBackend == "fluid" || (cfg.SegmentationModelPath != "" && cfg.EmbeddingModelPath != "")
	if wantDiarization {
		if err := transcriptionService.EnableDiarizationWithBackend(
			cfg.SegmentationModelPath, cfg.EmbeddingModelPath, cfg.DiarizationProvider, cfg.DiarizationBackend,
		); err != nil {
			log.Printf("Warning: failed to enable diarization: %v", err)
		} else {
			log.Printf("Diarization enabled (backend=%s, provider=%s)", cfg.DiarizationBackend, cfg.DiarizationProvider)
		}
	}

	server := api.NewServer(cfg, sessionMgr, engineMgr, modelMgr, capture, transcriptionService, recordingService)
	server.Start()
}
