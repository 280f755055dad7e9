package loan

import (
	"context"
	"fmt"
	"log/slog"
)

type DashboardMetrics struct {
	TotalLent        float64
	TotalOutstanding float64
	TotalRecovered   float64
	ActiveLoans      int
	OverdueLoans     int
	ActiveClients    int
	TotalClients     int
	TotalLoans       int
}

// DashboardMetrics aggregates over all loans, payments and clients on every call.
// TotalOutstanding only counts loans in state active.
func (s *loanServiceImpl) DashboardMetrics(ctx context.Context) (*DashboardMetrics, error) {
	loans, err := s.repo.ListLoans(ctx, LoanFilter{})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans for dashboard", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	payments, err := s.repo.ListPayments(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list payments for dashboard", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	clients, err := s.clients.ListClients(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	m := &DashboardMetrics{TotalLoans: len(loans), TotalClients: len(clients)}
	for _, l := range loans {
		m.TotalLent += l.Principal
		switch l.Status {
		case StatusActive:
			m.TotalOutstanding += l.OutstandingBalance
			m.ActiveLoans++
		case StatusOverdue:
			m.OverdueLoans++
		}
	}
	for _, p := range payments {
		m.TotalRecovered += p.Amount
	}
	for _, c := range clients {
		if c.Active {
			m.ActiveClients++
		}
	}
	return m, nil
}
