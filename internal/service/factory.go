package service

import (
	"rankwise.app/analyst/internal/queue"
)

type Services struct {
	stores   ReadStores
	analyzer Analyzer
	producer queue.Producer
	recaller Recaller
}

func NewServices(stores ReadStores, analyzer Analyzer, producer queue.Producer, recaller Recaller) *Services {
	return &Services{
		stores:   stores,
		analyzer: analyzer,
		producer: producer,
		recaller: recaller,
	}
}

func (s *Services) Analyses() AnalysisService {
	return NewAnalysisService(s.analyzer, s.producer)
}

func (s *Services) Targets() TargetService {
	return NewTargetService(s.stores)
}

func (s *Services) Memory() MemoryService {
	return NewMemoryService(s.recaller)
}
