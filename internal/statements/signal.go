package statements

import (
	"encoding/json"
	"math"

	"github.com/aristath/statements/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Fundamental factor signal: a weighted multi-factor score in [-1, 1]
// computed from the most recent quarterly series. Each factor averages a
// handful of clip-scored metrics; confidence reflects how many of the inputs
// the statements actually provided.

// FactorScore is one factor's contribution to the overall signal.
type FactorScore struct {
	Name             string  `json:"name"`
	Weight           float64 `json:"weight"`
	Score            float64 `json:"score"`
	Contribution     float64 `json:"contribution"`
	AvailableMetrics int     `json:"available_metrics"`
	TotalMetrics     int     `json:"total_metrics"`
}

// FundamentalSignal is the full scoring result.
type FundamentalSignal struct {
	Version        string             `json:"version"`
	Score          float64            `json:"score"`
	Signal         string             `json:"signal"` // bullish / neutral / bearish
	Confidence     float64            `json:"confidence"`
	Factors        []FactorScore      `json:"factors"`
	DerivedMetrics map[string]float64 `json:"derived_metrics"`
}

const signalVersion = "fundamental_factor_v1"

// Signal thresholds: scores inside (-0.20, 0.20) are neutral.
const signalThreshold = 0.20

// ComputeFundamentalSignal scores a ticker from its quarterly series. Any of
// the inputs may be nil or sparse; missing metrics lower confidence instead
// of failing.
func ComputeFundamentalSignal(fin, bal, cf, earn *domain.StatementSeries) FundamentalSignal {
	fin0, fin1, _ := nthRecords(fin)
	bal0, _, _ := nthRecords(bal)
	cf0, cf1, _ := nthRecords(cf)
	earn0, earn1, _ := nthRecords(earn)
	fin4 := nthRecord(fin, 4)
	earn4 := nthRecord(earn, 4)

	revenue0 := firstOf(metric(fin0, "Total Revenue", "Revenue"), metric(earn0, "Revenue"))
	revenue1 := firstOf(metric(fin1, "Total Revenue", "Revenue"), metric(earn1, "Revenue"))
	revenue4 := firstOf(metric(fin4, "Total Revenue", "Revenue"), metric(earn4, "Revenue"))
	eps0 := metric(earn0, "Earnings", "Diluted EPS", "Basic EPS")
	eps1 := metric(earn1, "Earnings", "Diluted EPS", "Basic EPS")
	eps4 := metric(earn4, "Earnings", "Diluted EPS", "Basic EPS")

	grossProfit0 := metric(fin0, "Gross Profit")
	grossProfit1 := metric(fin1, "Gross Profit")
	operatingIncome0 := metric(fin0, "Operating Income")
	netIncome0 := metric(fin0, "Net Income")
	netIncome1 := metric(fin1, "Net Income")
	fcf0 := metric(cf0, "Free Cash Flow")
	fcf1 := metric(cf1, "Free Cash Flow")
	ocf0 := metric(cf0, "Operating Cash Flow")

	totalDebt0 := metric(bal0, "Total Debt")
	equity0 := metric(bal0, "Common Stock Equity", "Stockholders Equity", "Total Equity Gross Minority Interest")
	cash0 := metric(bal0, "Cash And Cash Equivalents", "Cash Cash Equivalents And Short Term Investments")
	currentAssets0 := metric(bal0, "Current Assets")
	currentLiabilities0 := metric(bal0, "Current Liabilities", "Current Liabilities Net Minority Interest")

	revenueQoQ := pctChange(revenue0, revenue1)
	revenueYoY := pctChange(revenue0, revenue4)
	epsQoQ := pctChange(eps0, eps1)
	epsYoY := pctChange(eps0, eps4)
	fcfQoQ := pctChange(fcf0, fcf1)

	grossMargin := ratio(grossProfit0, revenue0)
	grossMarginPrev := ratio(grossProfit1, revenue1)
	operatingMargin := ratio(operatingIncome0, revenue0)
	netMargin := ratio(netIncome0, revenue0)
	netMarginPrev := ratio(netIncome1, revenue1)
	grossMarginDelta := diff(grossMargin, grossMarginPrev)
	netMarginDelta := diff(netMargin, netMarginPrev)

	fcfMargin := ratio(fcf0, revenue0)
	ocfToNetIncome := ratio(ocf0, netIncome0)

	debtToEquity := ratio(totalDebt0, equity0)
	cashToDebt := ratio(cash0, totalDebt0)
	currentRatio := ratio(currentAssets0, currentLiabilities0)

	factors := []struct {
		name   string
		weight float64
		scores []*float64
	}{
		{"growth", 0.36, []*float64{
			scoreLinear(revenueQoQ, -15.0, 15.0, false),
			scoreLinear(revenueYoY, -30.0, 30.0, false),
			scoreLinear(epsQoQ, -25.0, 25.0, false),
			scoreLinear(epsYoY, -40.0, 40.0, false),
		}},
		{"profitability", 0.26, []*float64{
			scoreLinear(grossMargin, 0.20, 0.65, false),
			scoreLinear(operatingMargin, 0.05, 0.30, false),
			scoreLinear(netMargin, 0.03, 0.22, false),
			scoreLinear(grossMarginDelta, -0.03, 0.03, false),
			scoreLinear(netMarginDelta, -0.02, 0.02, false),
		}},
		{"cashflow_quality", 0.23, []*float64{
			scoreLinear(fcfMargin, 0.00, 0.20, false),
			scoreLinear(ocfToNetIncome, 0.60, 1.60, false),
			scoreLinear(fcfQoQ, -30.0, 30.0, false),
		}},
		{"balance_sheet", 0.15, []*float64{
			scoreLinear(debtToEquity, 0.20, 2.50, true),
			scoreLinear(cashToDebt, 0.10, 1.20, false),
			scoreLinear(currentRatio, 1.00, 2.50, false),
		}},
	}

	result := FundamentalSignal{
		Version: signalVersion,
		Factors: make([]FactorScore, 0, len(factors)),
	}

	totalScore := 0.0
	availableCount, totalCount := 0, 0
	for _, f := range factors {
		valid := make([]float64, 0, len(f.scores))
		for _, s := range f.scores {
			if s != nil {
				valid = append(valid, *s)
			}
		}
		score := 0.0
		if len(valid) > 0 {
			score = stat.Mean(valid, nil)
		}
		contribution := score * f.weight
		totalScore += contribution
		availableCount += len(valid)
		totalCount += len(f.scores)

		result.Factors = append(result.Factors, FactorScore{
			Name:             f.name,
			Weight:           f.weight,
			Score:            round4(score),
			Contribution:     round4(contribution),
			AvailableMetrics: len(valid),
			TotalMetrics:     len(f.scores),
		})
	}

	result.Score = round4(clamp(totalScore, -1.0, 1.0))
	result.Signal = signalFromScore(result.Score)
	if totalCount > 0 {
		result.Confidence = round4(float64(availableCount) / float64(totalCount))
	}

	result.DerivedMetrics = collectMetrics(map[string]*float64{
		"revenue_qoq_pct":    revenueQoQ,
		"revenue_yoy_pct":    revenueYoY,
		"eps_qoq_pct":        epsQoQ,
		"eps_yoy_pct":        epsYoY,
		"gross_margin":       grossMargin,
		"operating_margin":   operatingMargin,
		"net_margin":         netMargin,
		"gross_margin_delta": grossMarginDelta,
		"net_margin_delta":   netMarginDelta,
		"fcf_margin":         fcfMargin,
		"ocf_to_net_income":  ocfToNetIncome,
		"fcf_qoq_pct":        fcfQoQ,
		"debt_to_equity":     debtToEquity,
		"cash_to_debt":       cashToDebt,
		"current_ratio":      currentRatio,
	})

	return result
}

func signalFromScore(score float64) string {
	switch {
	case score >= signalThreshold:
		return "bullish"
	case score <= -signalThreshold:
		return "bearish"
	default:
		return "neutral"
	}
}

// scoreLinear maps value onto [-1, 1] linearly between lower and upper,
// clipping outside the band. nil means the metric was unavailable.
func scoreLinear(value *float64, lower, upper float64, invert bool) *float64 {
	if value == nil || upper <= lower {
		return nil
	}
	clipped := clamp(*value, lower, upper)
	s := ((clipped-lower)/(upper-lower))*2.0 - 1.0
	if invert {
		s = -s
	}
	s = clamp(s, -1.0, 1.0)
	return &s
}

func nthRecords(s *domain.StatementSeries) (r0, r1, r2 *domain.StatementRecord) {
	return nthRecord(s, 0), nthRecord(s, 1), nthRecord(s, 2)
}

func nthRecord(s *domain.StatementSeries, n int) *domain.StatementRecord {
	if s == nil || n >= len(s.Records) {
		return nil
	}
	return &s.Records[n]
}

// metric pulls the first usable numeric value among candidate field names.
// Providers are inconsistent about line-item naming across tickers.
func metric(rec *domain.StatementRecord, candidates ...string) *float64 {
	if rec == nil {
		return nil
	}
	for _, name := range candidates {
		if v, ok := asFloat(rec.Fields[name]); ok {
			return &v
		}
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func firstOf(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	r := *num / *den
	return &r
}

func pctChange(current, previous *float64) *float64 {
	if current == nil || previous == nil || *previous == 0 {
		return nil
	}
	p := ((*current - *previous) / math.Abs(*previous)) * 100.0
	return &p
}

func diff(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := *a - *b
	return &d
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func collectMetrics(in map[string]*float64) map[string]float64 {
	out := make(map[string]float64)
	for name, v := range in {
		if v != nil {
			out[name] = round4(*v)
		}
	}
	return out
}
