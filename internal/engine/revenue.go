package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"airstrip/internal/domain"
	"airstrip/internal/events"
	"airstrip/internal/kv"
)

// RecordRevenue stores a revenue entry dated at the current host time.
func (e *Engine) RecordRevenue(ctx context.Context, p RecordRevenuePayload) (domain.Revenue, error) {
	if err := checkPayload(p); err != nil {
		return domain.Revenue{}, err
	}
	var out domain.Revenue
	err := e.mutate(ctx, "record_revenue", func(c *change) error {
		if err := e.requireAirstrip(ctx, c, p.AirstripID); err != nil {
			return err
		}
		id, err := e.Repo.IDs.Next(ctx, c)
		if err != nil {
			return err
		}
		out = domain.Revenue{
			ID:              id,
			AirstripID:      p.AirstripID,
			Source:          p.Source,
			Amount:          p.Amount,
			TransactionDate: e.nowNanos(),
			Description:     p.Description,
		}
		if err := e.Repo.Revenues.Insert(ctx, c, id, out); err != nil {
			return err
		}
		return c.emit("revenue.record", "revenue", id, events.EventPayload{"source": out.Source, "amount": out.Amount})
	})
	if err != nil {
		return domain.Revenue{}, err
	}
	return out, nil
}

// RevenueAnalysis sums the airstrip's revenue per source over the inclusive
// window [start, end]. Sources appear in order of first occurrence and the
// grand sum is reported under "total".
func (e *Engine) RevenueAnalysis(ctx context.Context, airstripID, start, end uint64) (domain.RevenueBreakdown, error) {
	if start > end {
		return nil, invalid("start_time must not be after end_time")
	}
	var out domain.RevenueBreakdown
	err := e.read(ctx, "revenue_analysis", func(r kv.Reader) error {
		var order []string
		sums := map[string]decimal.Decimal{}
		total := decimal.Zero
		err := e.Repo.Revenues.Scan(ctx, r, func(_ uint64, rev domain.Revenue) error {
			if rev.AirstripID != airstripID || rev.TransactionDate < start || rev.TransactionDate > end {
				return nil
			}
			amount := decimal.NewFromFloat(rev.Amount)
			if _, seen := sums[rev.Source]; !seen {
				order = append(order, rev.Source)
			}
			sums[rev.Source] = sums[rev.Source].Add(amount)
			total = total.Add(amount)
			return nil
		})
		if err != nil {
			return err
		}
		out = make(domain.RevenueBreakdown, 0, len(order)+1)
		for _, src := range order {
			out = append(out, domain.RevenueLine{Source: src, Amount: sums[src].InexactFloat64()})
		}
		out = append(out, domain.RevenueLine{Source: domain.RevenueTotalKey, Amount: total.InexactFloat64()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
