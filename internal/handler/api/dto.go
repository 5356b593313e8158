package api

import (
	"time"

	"BondPanel/internal/domain/models"
	xhttp "BondPanel/pkg/http"
	"BondPanel/pkg/util"
)

// RunWindowRequest is the body of POST /api/runs.
type RunWindowRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

type FactorDTO struct {
	Date  string      `json:"date"`
	Name  string      `json:"name"`
	Value xhttp.Float `json:"value"`
}

// MonthlyDTO is the published subset of a panel row.
type MonthlyDTO struct {
	Cusip             string      `json:"cusip"`
	MonthEnd          string      `json:"month_end"`
	ObsDate           string      `json:"obs_date,omitempty"`
	Source            string      `json:"source"`
	Price             xhttp.Float `json:"price"`
	Ret               xhttp.Float `json:"ret"`
	RetTotal          xhttp.Float `json:"ret_total"`
	Yield             xhttp.Float `json:"yield"`
	ModDuration       xhttp.Float `json:"mod_duration"`
	TMT               xhttp.Float `json:"tmt"`
	CreditSpread      xhttp.Float `json:"credit_spread"`
	RiskFree          xhttp.Float `json:"risk_free"`
	ExRet             xhttp.Float `json:"ex_ret"`
	ExRetBench        xhttp.Float `json:"ex_ret_bench"`
	Rating            int         `json:"rating"`
	AmountOutstanding xhttp.Float `json:"amount_outstanding"`
	Industry          int         `json:"industry"`
	VaR               xhttp.Float `json:"var95"`
	BPW               xhttp.Float `json:"bpw"`
	Roll              xhttp.Float `json:"roll"`
	Amihud            xhttp.Float `json:"amihud"`
	CS12              xhttp.Float `json:"cs12"`
	RetNext           xhttp.Float `json:"ret_next"`
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(util.DateLayout)
}

func toFactorDTOs(in []models.FactorValue) []FactorDTO {
	out := make([]FactorDTO, len(in))
	for i, f := range in {
		out[i] = FactorDTO{Date: dateString(f.Date), Name: f.Name, Value: xhttp.Float(f.Value)}
	}
	return out
}

func toMonthlyDTOs(in []models.MonthlyBondRecord) []MonthlyDTO {
	out := make([]MonthlyDTO, len(in))
	for i, r := range in {
		out[i] = MonthlyDTO{
			Cusip:             r.Cusip,
			MonthEnd:          dateString(r.MonthEnd),
			ObsDate:           dateString(r.ObsDate),
			Source:            string(r.Source),
			Price:             xhttp.Float(r.Price),
			Ret:               xhttp.Float(r.Ret),
			RetTotal:          xhttp.Float(r.RetTotal),
			Yield:             xhttp.Float(r.Yield),
			ModDuration:       xhttp.Float(r.ModDuration),
			TMT:               xhttp.Float(r.TMT),
			CreditSpread:      xhttp.Float(r.CreditSpread),
			RiskFree:          xhttp.Float(r.RiskFree),
			ExRet:             xhttp.Float(r.ExRet),
			ExRetBench:        xhttp.Float(r.ExRetBench),
			Rating:            r.Rating,
			AmountOutstanding: xhttp.Float(r.AmountOutstanding),
			Industry:          r.Industry,
			VaR:               xhttp.Float(r.VaR),
			BPW:               xhttp.Float(r.Liquidity.BPW),
			Roll:              xhttp.Float(r.Liquidity.Roll),
			Amihud:            xhttp.Float(r.Liquidity.Amihud),
			CS12:              xhttp.Float(r.CS12),
			RetNext:           xhttp.Float(r.RetNext),
		}
	}
	return out
}
