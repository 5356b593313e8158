package repository

import (
	"time"

	"BondPanel/internal/domain/models"
)

// Output tables written by a run.
const (
	TableCleanTrades = "clean_trades"
	TableDaily       = "daily_observations"
	TableMonthly     = "monthly_panel"
	TableFactors     = "factor_values"
)

// WarehouseTables names the raw input tables.
type WarehouseTables struct {
	Issues   string
	Trades   string
	Curves   string
	RiskFree string
	Ratings  string
	Amounts  string
}

func DefaultWarehouseTables() WarehouseTables {
	return WarehouseTables{
		Issues:   "fisd_issues",
		Trades:   "trace_messages",
		Curves:   "benchmark_curves",
		RiskFree: "risk_free",
		Ratings:  "fisd_ratings",
		Amounts:  "fisd_amount_actions",
	}
}

func cleanTradeTable() table[models.CleanTradeEvent] {
	type R = models.CleanTradeEvent
	return table[R]{
		name: TableCleanTrades,
		key:  []string{"cusip", "exec_date", "msg_seq"},
		cols: []column[R]{
			strCol("cusip", func(r *R) *string { return &r.Cusip }),
			dateCol("exec_date", func(r *R) *time.Time { return &r.ExecDate }),
			clockCol("exec_time", func(r *R) *time.Duration { return &r.ExecTime }),
			dateCol("report_date", func(r *R) *time.Time { return &r.ReportDate }),
			clockCol("report_time", func(r *R) *time.Duration { return &r.ReportTime }),
			intCol("msg_seq", func(r *R) *int64 { return &r.MsgSeq }),
			floatCol("price", func(r *R) *float64 { return &r.Price }),
			floatCol("volume", func(r *R) *float64 { return &r.Volume }),
			strCol("side", func(r *R) *string { return &r.Side }),
			strCol("contra", func(r *R) *string { return &r.Contra }),
			intCol("era", func(r *R) *models.Era { return &r.Era }),
			boolCol("corrected", func(r *R) *bool { return &r.Corrected }),
		},
	}
}

func dailyTable() table[models.ValuedBondObservation] {
	type R = models.ValuedBondObservation
	return table[R]{
		name: TableDaily,
		key:  []string{"cusip", "date"},
		cols: []column[R]{
			strCol("cusip", func(r *R) *string { return &r.Cusip }),
			dateCol("date", func(r *R) *time.Time { return &r.Date }),
			floatCol("price_ew", func(r *R) *float64 { return &r.PriceEW }),
			floatCol("price_vw", func(r *R) *float64 { return &r.PriceVW }),
			floatCol("open", func(r *R) *float64 { return &r.Open }),
			floatCol("high", func(r *R) *float64 { return &r.High }),
			floatCol("low", func(r *R) *float64 { return &r.Low }),
			floatCol("close", func(r *R) *float64 { return &r.Close }),
			floatCol("par_volume", func(r *R) *float64 { return &r.ParVolume }),
			floatCol("dollar_volume", func(r *R) *float64 { return &r.DollarVolume }),
			intCol("trades", func(r *R) *int { return &r.Trades }),
			floatCol("roll", func(r *R) *float64 { return &r.Roll }),
			floatCol("lix", func(r *R) *float64 { return &r.LIX }),
			floatCol("bid_ask", func(r *R) *float64 { return &r.BidAsk }),
			floatCol("iqr", func(r *R) *float64 { return &r.IQR }),
			floatCol("volatility", func(r *R) *float64 { return &r.Volatility }),
			floatCol("amihud_intraday", func(r *R) *float64 { return &r.AmihudIntraday }),
			floatCol("price", func(r *R) *float64 { return &r.Price }),
			boolCol("valid", func(r *R) *bool { return &r.Valid }),
			dateCol("settlement", func(r *R) *time.Time { return &r.Settlement }),
			floatCol("yield", func(r *R) *float64 { return &r.Yield }),
			floatCol("yield_true", func(r *R) *float64 { return &r.YieldTrue }),
			floatCol("clean", func(r *R) *float64 { return &r.Clean }),
			floatCol("dirty", func(r *R) *float64 { return &r.Dirty }),
			floatCol("accrued_last", func(r *R) *float64 { return &r.AccruedLast }),
			floatCol("accrued_paid", func(r *R) *float64 { return &r.AccruedPaid }),
			floatCol("accrued_all", func(r *R) *float64 { return &r.AccruedAll }),
			floatCol("mod_duration", func(r *R) *float64 { return &r.ModDuration }),
			floatCol("convexity", func(r *R) *float64 { return &r.Convexity }),
		},
	}
}

func monthlyTable() table[models.MonthlyBondRecord] {
	type R = models.MonthlyBondRecord
	return table[R]{
		name: TableMonthly,
		key:  []string{"month_end", "cusip"},
		cols: []column[R]{
			strCol("cusip", func(r *R) *string { return &r.Cusip }),
			dateCol("month_end", func(r *R) *time.Time { return &r.MonthEnd }),
			dateCol("obs_date", func(r *R) *time.Time { return &r.ObsDate }),
			strCol("source", func(r *R) *models.ObservationSource { return &r.Source }),
			floatCol("price", func(r *R) *float64 { return &r.Price }),
			floatCol("dirty", func(r *R) *float64 { return &r.Dirty }),
			floatCol("accrued_all", func(r *R) *float64 { return &r.AccruedAll }),
			floatCol("yield", func(r *R) *float64 { return &r.Yield }),
			floatCol("yield_true", func(r *R) *float64 { return &r.YieldTrue }),
			floatCol("mod_duration", func(r *R) *float64 { return &r.ModDuration }),
			floatCol("convexity", func(r *R) *float64 { return &r.Convexity }),
			floatCol("par_volume", func(r *R) *float64 { return &r.ParVolume }),
			floatCol("dollar_volume", func(r *R) *float64 { return &r.DollarVolume }),
			floatCol("ret", func(r *R) *float64 { return &r.Ret }),
			floatCol("ret_price", func(r *R) *float64 { return &r.RetPrice }),
			floatCol("ret_accrued", func(r *R) *float64 { return &r.RetAccrued }),
			floatCol("ret_total", func(r *R) *float64 { return &r.RetTotal }),
			floatCol("tmt", func(r *R) *float64 { return &r.TMT }),
			floatCol("yield_interp_tmt", func(r *R) *float64 { return &r.YieldInterpTMT }),
			floatCol("yield_interp_dur", func(r *R) *float64 { return &r.YieldInterpDur }),
			floatCol("ret_interp_tmt", func(r *R) *float64 { return &r.RetInterpTMT }),
			floatCol("ret_interp_dur", func(r *R) *float64 { return &r.RetInterpDur }),
			floatCol("credit_spread", func(r *R) *float64 { return &r.CreditSpread }),
			floatCol("credit_spread_dur", func(r *R) *float64 { return &r.CreditSpreadDur }),
			floatCol("risk_free", func(r *R) *float64 { return &r.RiskFree }),
			floatCol("ex_ret", func(r *R) *float64 { return &r.ExRet }),
			floatCol("ex_ret_bench", func(r *R) *float64 { return &r.ExRetBench }),
			floatCol("ex_ret_bench_dur", func(r *R) *float64 { return &r.ExRetBenchDur }),
			intCol("rating_sp", func(r *R) *int { return &r.RatingSP }),
			intCol("rating_moody", func(r *R) *int { return &r.RatingMoody }),
			intCol("rating", func(r *R) *int { return &r.Rating }),
			floatCol("amount_outstanding", func(r *R) *float64 { return &r.AmountOutstanding }),
			intCol("industry", func(r *R) *int { return &r.Industry }),
			floatCol("var95", func(r *R) *float64 { return &r.VaR }),
			floatCol("bpw", func(r *R) *float64 { return &r.Liquidity.BPW }),
			floatCol("roll", func(r *R) *float64 { return &r.Liquidity.Roll }),
			floatCol("amihud", func(r *R) *float64 { return &r.Liquidity.Amihud }),
			floatCol("vov", func(r *R) *float64 { return &r.Liquidity.VoV }),
			floatCol("ps_gamma", func(r *R) *float64 { return &r.Liquidity.PSGamma }),
			intCol("liquidity_n", func(r *R) *int { return &r.Liquidity.N }),
			floatCol("cs12", func(r *R) *float64 { return &r.CS12 }),
			floatCol("ret_next", func(r *R) *float64 { return &r.RetNext }),
			floatCol("ex_ret_next", func(r *R) *float64 { return &r.ExRetNext }),
			floatCol("ex_ret_bench_next", func(r *R) *float64 { return &r.ExRetBenchNext }),
			floatCol("ex_ret_bench_dur_next", func(r *R) *float64 { return &r.ExRetBenchDurNext }),
		},
	}
}

func factorTable() table[models.FactorValue] {
	type R = models.FactorValue
	return table[R]{
		name: TableFactors,
		key:  []string{"name", "date"},
		cols: []column[R]{
			dateCol("date", func(r *R) *time.Time { return &r.Date }),
			strCol("name", func(r *R) *string { return &r.Name }),
			floatCol("value", func(r *R) *float64 { return &r.Value }),
		},
	}
}

func issueTable(name string) table[models.BondIssue] {
	type R = models.BondIssue
	return table[R]{
		name: name,
		key:  []string{"complete_cusip"},
		cols: []column[R]{
			strCol("complete_cusip", func(r *R) *string { return &r.Cusip }),
			strCol("issuer_id", func(r *R) *string { return &r.IssuerID }),
			strCol("country_domicile", func(r *R) *string { return &r.CountryDomicile }),
			strCol("foreign_currency", func(r *R) *string { return &r.ForeignCurrency }),
			strCol("coupon_type", func(r *R) *string { return &r.CouponType }),
			floatCol("coupon", func(r *R) *float64 { return &r.Coupon }),
			{
				name: "interest_frequency",
				typ:  tNullInt,
				arg: func(r *R) any {
					if !r.HasInterestFrequency {
						return nil
					}
					return int64(r.InterestFrequency)
				},
				dest: func(r *R) any { return &optInt{&r.InterestFrequency, &r.HasInterestFrequency} },
			},
			strCol("convertible", func(r *R) *string { return &r.Convertible }),
			strCol("asset_backed", func(r *R) *string { return &r.AssetBacked }),
			strCol("rule_144a", func(r *R) *string { return &r.Rule144A }),
			strCol("private_placement", func(r *R) *string { return &r.PrivatePlacement }),
			strCol("bond_type", func(r *R) *string { return &r.BondType }),
			dateCol("dated_date", func(r *R) *time.Time { return &r.DatedDate }),
			dateCol("offering_date", func(r *R) *time.Time { return &r.OfferingDate }),
			dateCol("maturity", func(r *R) *time.Time { return &r.Maturity }),
			strCol("day_count_basis", func(r *R) *string { return &r.DayCountBasis }),
			floatCol("offering_amt", func(r *R) *float64 { return &r.OfferingAmount }),
			floatCol("principal_amt", func(r *R) *float64 { return &r.ParValue }),
			intCol("sic_code", func(r *R) *int { return &r.SICCode }),
		},
	}
}

// tradeTable follows the enhanced trade-report column names.
func tradeTable(name string) table[models.TradeMessage] {
	type R = models.TradeMessage
	return table[R]{
		name: name,
		key:  []string{"cusip_id", "trd_exctn_dt", "msg_seq_nb", "trc_st"},
		cols: []column[R]{
			strCol("cusip_id", func(r *R) *string { return &r.Cusip }),
			strCol("bond_sym_id", func(r *R) *string { return &r.BondSym }),
			dateCol("trd_exctn_dt", func(r *R) *time.Time { return &r.ExecDate }),
			clockCol("trd_exctn_tm", func(r *R) *time.Duration { return &r.ExecTime }),
			dateCol("trd_rpt_dt", func(r *R) *time.Time { return &r.ReportDate }),
			clockCol("trd_rpt_tm", func(r *R) *time.Duration { return &r.ReportTime }),
			intCol("msg_seq_nb", func(r *R) *int64 { return &r.MsgSeq }),
			intCol("orig_msg_seq_nb", func(r *R) *int64 { return &r.OrigMsgSeq }),
			strCol("trc_st", func(r *R) *string { return &r.Status }),
			strCol("asof_cd", func(r *R) *string { return &r.AsOf }),
			strCol("rpt_side_cd", func(r *R) *string { return &r.Side }),
			strCol("cntra_mp_id", func(r *R) *string { return &r.Contra }),
			strCol("days_to_sttl_ct", func(r *R) *string { return &r.SettleDays }),
			strCol("wis_fl", func(r *R) *string { return &r.WhenIssued }),
			strCol("lckd_in_ind", func(r *R) *string { return &r.LockedIn }),
			strCol("sale_cndtn_cd", func(r *R) *string { return &r.SaleCondition }),
			floatCol("entrd_vol_qt", func(r *R) *float64 { return &r.Volume }),
			floatCol("rptd_pr", func(r *R) *float64 { return &r.Price }),
			floatCol("yld_pt", func(r *R) *float64 { return &r.Yield }),
		},
	}
}

// curvePoint is one stored tenor of a benchmark curve.
type curvePoint struct {
	MonthEnd time.Time
	models.BenchmarkPoint
}

func curveTable(name string) table[curvePoint] {
	type R = curvePoint
	return table[R]{
		name: name,
		key:  []string{"month_end", "term"},
		cols: []column[R]{
			dateCol("month_end", func(r *R) *time.Time { return &r.MonthEnd }),
			intCol("term", func(r *R) *int { return &r.Term }),
			floatCol("maturity", func(r *R) *float64 { return &r.Maturity }),
			floatCol("duration", func(r *R) *float64 { return &r.Duration }),
			floatCol("mod_duration", func(r *R) *float64 { return &r.ModDuration }),
			floatCol("yield", func(r *R) *float64 { return &r.Yield }),
			floatCol("ret", func(r *R) *float64 { return &r.Return }),
		},
	}
}

func riskFreeTable(name string) table[models.RiskFreeRate] {
	type R = models.RiskFreeRate
	return table[R]{
		name: name,
		key:  []string{"month_end"},
		cols: []column[R]{
			dateCol("month_end", func(r *R) *time.Time { return &r.MonthEnd }),
			floatCol("rate", func(r *R) *float64 { return &r.Rate }),
		},
	}
}

func ratingTable(name string) table[models.RatingEvent] {
	type R = models.RatingEvent
	return table[R]{
		name: name,
		key:  []string{"complete_cusip", "rating_type", "rating_date"},
		cols: []column[R]{
			strCol("complete_cusip", func(r *R) *string { return &r.Cusip }),
			strCol("rating_type", func(r *R) *string { return &r.Agency }),
			dateCol("rating_date", func(r *R) *time.Time { return &r.Date }),
			strCol("rating", func(r *R) *string { return &r.Rating }),
		},
	}
}

func amountTable(name string) table[models.AmountAction] {
	type R = models.AmountAction
	return table[R]{
		name: name,
		key:  []string{"complete_cusip", "effective_date", "action_type"},
		cols: []column[R]{
			strCol("complete_cusip", func(r *R) *string { return &r.Cusip }),
			strCol("action_type", func(r *R) *string { return &r.Type }),
			dateCol("effective_date", func(r *R) *time.Time { return &r.EffectiveDate }),
			floatCol("action_amount", func(r *R) *float64 { return &r.Amount }),
			floatCol("amount_outstanding", func(r *R) *float64 { return &r.AmountOutstanding }),
		},
	}
}
