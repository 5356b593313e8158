package repository

import (
	"context"
	"math"
	"strconv"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/internal/domain/repository"
	pkgkafka "BondPanel/pkg/kafka"
	"BondPanel/pkg/util"
)

type batchWriter interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// PublisherTopics names the output topics.
type PublisherTopics struct {
	CleanTrades string
	Daily       string
	Factors     string
}

// KafkaPublisher streams run outputs keyed by bond (or factor name) so
// each key stays ordered within its partition.
type KafkaPublisher struct {
	w      batchWriter
	topics PublisherTopics
}

var _ repository.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(w batchWriter, topics PublisherTopics) *KafkaPublisher {
	return &KafkaPublisher{w: w, topics: topics}
}

func (p *KafkaPublisher) PublishCleanTrades(ctx context.Context, events []models.CleanTradeEvent) error {
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{Key: []byte(e.Cusip), Value: cleanTradeMsg{
			Cusip:      e.Cusip,
			ExecDate:   e.ExecDate.Format(util.DateLayout),
			ExecTime:   clockString(e.ExecTime),
			ReportDate: e.ReportDate.Format(util.DateLayout),
			MsgSeq:     e.MsgSeq,
			Price:      num(e.Price),
			Volume:     num(e.Volume),
			Side:       e.Side,
			Era:        e.Era.String(),
			Corrected:  e.Corrected,
		}}
	}
	return p.w.PublishBatch(ctx, p.topics.CleanTrades, msgs)
}

func (p *KafkaPublisher) PublishDaily(ctx context.Context, obs []models.ValuedBondObservation) error {
	msgs := make([]pkgkafka.Message, len(obs))
	for i, o := range obs {
		msgs[i] = pkgkafka.Message{Key: []byte(o.Cusip), Value: dailyMsg{
			Cusip:        o.Cusip,
			Date:         o.Date.Format(util.DateLayout),
			PriceEW:      num(o.PriceEW),
			PriceVW:      num(o.PriceVW),
			ParVolume:    num(o.ParVolume),
			DollarVolume: num(o.DollarVolume),
			Trades:       o.Trades,
			Valid:        o.Valid,
			Yield:        num(o.Yield),
			Clean:        num(o.Clean),
			Dirty:        num(o.Dirty),
			AccruedAll:   num(o.AccruedAll),
			ModDuration:  num(o.ModDuration),
			Convexity:    num(o.Convexity),
		}}
	}
	return p.w.PublishBatch(ctx, p.topics.Daily, msgs)
}

func (p *KafkaPublisher) PublishFactors(ctx context.Context, factors []models.FactorValue) error {
	msgs := make([]pkgkafka.Message, len(factors))
	for i, f := range factors {
		msgs[i] = pkgkafka.Message{Key: []byte(f.Name), Value: factorMsg{
			Date:  f.Date.Format(util.DateLayout),
			Name:  f.Name,
			Value: num(f.Value),
		}}
	}
	return p.w.PublishBatch(ctx, p.topics.Factors, msgs)
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// num is a float whose non-finite values encode as JSON null. msgpack
// ignores the method and keeps the raw value.
type num float64

func (n num) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

type cleanTradeMsg struct {
	Cusip      string `json:"cusip" msgpack:"cusip"`
	ExecDate   string `json:"exec_date" msgpack:"exec_date"`
	ExecTime   string `json:"exec_time,omitempty" msgpack:"exec_time,omitempty"`
	ReportDate string `json:"report_date" msgpack:"report_date"`
	MsgSeq     int64  `json:"msg_seq" msgpack:"msg_seq"`
	Price      num    `json:"price" msgpack:"price"`
	Volume     num    `json:"volume" msgpack:"volume"`
	Side       string `json:"side" msgpack:"side"`
	Era        string `json:"era" msgpack:"era"`
	Corrected  bool   `json:"corrected" msgpack:"corrected"`
}

type dailyMsg struct {
	Cusip        string `json:"cusip" msgpack:"cusip"`
	Date         string `json:"date" msgpack:"date"`
	PriceEW      num    `json:"price_ew" msgpack:"price_ew"`
	PriceVW      num    `json:"price_vw" msgpack:"price_vw"`
	ParVolume    num    `json:"par_volume" msgpack:"par_volume"`
	DollarVolume num    `json:"dollar_volume" msgpack:"dollar_volume"`
	Trades       int    `json:"trades" msgpack:"trades"`
	Valid        bool   `json:"valid" msgpack:"valid"`
	Yield        num    `json:"yield" msgpack:"yield"`
	Clean        num    `json:"clean" msgpack:"clean"`
	Dirty        num    `json:"dirty" msgpack:"dirty"`
	AccruedAll   num    `json:"accrued_all" msgpack:"accrued_all"`
	ModDuration  num    `json:"mod_duration" msgpack:"mod_duration"`
	Convexity    num    `json:"convexity" msgpack:"convexity"`
}

type factorMsg struct {
	Date  string `json:"date" msgpack:"date"`
	Name  string `json:"name" msgpack:"name"`
	Value num    `json:"value" msgpack:"value"`
}

func clockString(d time.Duration) string {
	if s, ok := clockArg(d).(string); ok {
		return s
	}
	return ""
}
