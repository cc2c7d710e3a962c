package config

import (
	"flag"
	"path/filepath"
)

type Config struct {
	ModelPath string
	DataDir   string
	ModelsDir string
	Port      string
	GRPCAddr  string

	DiarizationProvider   string
	DiarizationBackend    string
	SegmentationModelPath string
	EmbeddingModelPath    string
	RemoveFillers         bool
}

func Load() *Config {
	modelPath := flag.String("model", "gigaam-rnnt.onnx", "Path to the RNNT recognition model")
	dataDir := flag.String("data", "data/sessions", "Directory for session data")
	modelsDir := flag.String("models", "", "Directory for downloaded models (default: dataDir/../models)")
	port := flag.String("port", "8080", "HTTP server port")
	grpcAddr := flag.String("grpc", ":50051", "gRPC control server address (tcp host:port or unix:/path)")
	diarizationProvider := flag.String("diarization-provider", "cpu", "Diarization inference provider: cpu, coreml, cuda, auto")
	diarizationBackend := flag.String("diarization-backend", "sherpa", "Diarization backend: sherpa (ONNX), fluid (FluidAudio/CoreML, macOS only)")
	segmentationModel := flag.String("segmentation-model", "", "Path to the speaker segmentation model")
	embeddingModel := flag.String("embedding-model", "", "Path to the speaker embedding model")
	removeFillers := flag.Bool("remove-fillers", false, "Strip filler words from output transcripts")
	flag.Parse()

	// Determine models directory
	finalModelsDir := *modelsDir
	if finalModelsDir == "" {
		finalModelsDir = filepath.Join(filepath.Dir(*dataDir), "models")
	}

	return &Config{
		ModelPath:             *modelPath,
		DataDir:               *dataDir,
		ModelsDir:             finalModelsDir,
		Port:                  *port,
		GRPCAddr:              *grpcAddr,
		DiarizationProvider:   *diarizationProvider,
		DiarizationBackend:    *diarizationBackend,
		SegmentationModelPath: *segmentationModel,
		EmbeddingModelPath:    *embeddingModel,
		RemoveFillers:         *removeFillers,
	}
}
