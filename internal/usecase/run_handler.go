package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"BondPanel/internal/domain/models"
	drepo "BondPanel/internal/domain/repository"
	pkgkafka "BondPanel/pkg/kafka"
	"BondPanel/pkg/logger"
	"BondPanel/pkg/util"
)

// RunRequestHandler starts runs from messages on a Kafka topic.
type RunRequestHandler struct {
	topic   string
	runs    *RunService
	base    context.Context
	metrics drepo.Metrics
	log     *logger.Logger
}

// NewRunRequestHandler creates a handler whose runs live as long as base.
func NewRunRequestHandler(base context.Context, topic string, runs *RunService, metrics drepo.Metrics, log *logger.Logger) *RunRequestHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RunRequestHandler{topic: topic, runs: runs, base: base, metrics: metrics, log: log}
}

func (h *RunRequestHandler) Topic() string { return h.topic }

// incoming message schema: {"from": "YYYY-MM-DD", "to": "YYYY-MM-DD"}
func (h *RunRequestHandler) Handle(ctx context.Context, b []byte) error {
	req, err := ParseRunRequest(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	report, err := h.runs.Start(ctx, h.base, req)
	if errors.Is(err, ErrRunInProgress) {
		h.log.Info("run request skipped, window already running",
			logger.Date("from", req.From), logger.Date("to", req.To))
		return nil
	}
	if err != nil {
		h.metrics.RecordError("run_start")
		return err
	}
	h.log.Info("run requested", logger.String("run_id", report.ID))
	return nil
}

// ParseRunRequest decodes a {from, to} window with dates in any layout
// util.ParseDate accepts.
func ParseRunRequest(b []byte) (models.RunRequest, error) {
	var m struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return models.RunRequest{}, fmt.Errorf("decode run request: %w", err)
	}
	from, ok := util.ParseDate(m.From)
	if !ok {
		return models.RunRequest{}, fmt.Errorf("invalid from date %q", m.From)
	}
	to, ok := util.ParseDate(m.To)
	if !ok {
		return models.RunRequest{}, fmt.Errorf("invalid to date %q", m.To)
	}
	if to.Before(from) {
		return models.RunRequest{}, fmt.Errorf("window ends before it starts")
	}
	return models.RunRequest{From: from, To: to}, nil
}

var _ pkgkafka.MessageHandler = (*RunRequestHandler)(nil)
