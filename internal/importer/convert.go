package importer

import (
	"fmt"
	"time"

	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/domain/user"

	"github.com/google/uuid"
)

// legacyNamespace seeds the deterministic id mapping. Changing it breaks re-imports.
var legacyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("loan-tracker/legacy-export"))

func legacyID(kind, id string) uuid.UUID {
	return uuid.NewSHA1(legacyNamespace, []byte(kind+":"+id))
}

var (
	periodTypes = map[string]loan.PeriodType{
		"semanal":   loan.PeriodWeekly,
		"quincenal": loan.PeriodBiweekly,
		"mensual":   loan.PeriodMonthly,
	}
	loanStatuses = map[string]loan.LoanStatus{
		"activo":     loan.StatusActive,
		"completado": loan.StatusCompleted,
		"vencido":    loan.StatusOverdue,
		"cancelado":  loan.StatusCancelled,
	}
	installmentStatuses = map[string]loan.InstallmentStatus{
		"pendiente": loan.InstallmentPending,
		"pagada":    loan.InstallmentPaid,
		"vencida":   loan.InstallmentOverdue,
	}
	paymentTypes = map[string]loan.PaymentType{
		"cuota":         loan.PaymentInstallment,
		"abono":         loan.PaymentPartial,
		"pago_completo": loan.PaymentFullSettlement,
	}
)

// Dataset is a legacy export translated into domain records.
type Dataset struct {
	Users    []*user.User
	Clients  []*client.Client
	Loans    []*loan.Loan
	Payments []*loan.Payment
}

func lookup[T any](table map[string]T, value, field, owner string) (T, error) {
	v, ok := table[value]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unknown %s %q", owner, field, value)
	}
	return v, nil
}

func convert(export *legacyExport, importedAt time.Time) (*Dataset, error) {
	importedAt = importedAt.UTC().Truncate(time.Second)
	ds := &Dataset{}

	for _, u := range export.Users {
		ds.Users = append(ds.Users, &user.User{
			ID:           legacyID("user", u.ID),
			Username:     user.NormalizeUsername(u.Username),
			PasswordHash: u.PasswordHash,
			Name:         u.Name,
			Email:        u.Email,
			CreatedAt:    importedAt,
		})
	}

	for _, c := range export.Clients {
		registeredAt := importedAt
		if c.FechaRegistro != "" {
			t, err := parseDate(c.FechaRegistro)
			if err != nil {
				return nil, fmt.Errorf("client %s: fechaRegistro: %w", c.ID, err)
			}
			registeredAt = t
		}
		active := true
		if c.Activo != nil {
			active = *c.Activo
		}
		ds.Clients = append(ds.Clients, &client.Client{
			ID:           legacyID("client", c.ID),
			FirstName:    c.Nombre,
			LastName:     c.Apellido,
			Document:     c.Documento,
			Phone:        c.Telefono,
			Email:        c.Email,
			Address:      c.Direccion,
			RegisteredAt: registeredAt,
			Active:       active,
			UpdatedAt:    importedAt,
		})
	}

	for _, l := range export.Loans {
		converted, err := convertLoan(l, importedAt)
		if err != nil {
			return nil, err
		}
		ds.Loans = append(ds.Loans, converted)
	}

	for _, p := range export.Payments {
		owner := "payment " + p.ID
		paymentType, err := lookup(paymentTypes, p.Tipo, "tipo", owner)
		if err != nil {
			return nil, err
		}
		date, err := parseDate(p.Fecha)
		if err != nil {
			return nil, fmt.Errorf("%s: fecha: %w", owner, err)
		}
		ds.Payments = append(ds.Payments, &loan.Payment{
			ID:                legacyID("payment", p.ID),
			LoanID:            legacyID("loan", p.PrestamoID),
			ClientID:          legacyID("client", p.ClienteID),
			ClientName:        p.ClienteNombre,
			Amount:            p.Monto.InexactFloat64(),
			Date:              date,
			Type:              paymentType,
			InstallmentNumber: p.NumeroCuota,
			Notes:             p.Observaciones,
			CreatedAt:         importedAt,
		})
	}

	return ds, nil
}

func convertLoan(l legacyLoan, importedAt time.Time) (*loan.Loan, error) {
	owner := "loan " + l.ID
	periodType, err := lookup(periodTypes, l.TipoPlazo, "tipoPlazo", owner)
	if err != nil {
		return nil, err
	}
	status, err := lookup(loanStatuses, l.Estado, "estado", owner)
	if err != nil {
		return nil, err
	}
	start, err := parseDate(l.FechaInicio)
	if err != nil {
		return nil, fmt.Errorf("%s: fechaInicio: %w", owner, err)
	}
	due, err := parseDate(l.FechaVencimiento)
	if err != nil {
		return nil, fmt.Errorf("%s: fechaVencimiento: %w", owner, err)
	}

	total := l.CuotasTotales
	if total == 0 {
		total = l.CantidadCuotas
	}

	out := &loan.Loan{
		ID:                 legacyID("loan", l.ID),
		ClientID:           legacyID("client", l.ClienteID),
		ClientName:         l.ClienteNombre,
		Principal:          l.Monto.InexactFloat64(),
		InterestRate:       l.TasaInteres.InexactFloat64(),
		PeriodType:         periodType,
		InstallmentCount:   l.CantidadCuotas,
		TotalInstallments:  total,
		StartDate:          start,
		DueDate:            due,
		Status:             status,
		OutstandingBalance: l.MontoPendiente.InexactFloat64(),
		PeriodicPayment:    l.CuotaMensual.InexactFloat64(),
		PaidInstallments:   min(l.CuotasPagadas, total),
		Installments:       make([]loan.Installment, 0, len(l.Cuotas)),
		CreatedAt:          importedAt,
		UpdatedAt:          importedAt,
	}

	// The loan due date is the last installment's; the exported field is only
	// used when the loan carries no installments.
	lastNumber := 0
	for _, c := range l.Cuotas {
		instStatus, err := lookup(installmentStatuses, c.Estado, "cuota estado", owner)
		if err != nil {
			return nil, err
		}
		dueDate, err := parseDate(c.FechaVencimiento)
		if err != nil {
			return nil, fmt.Errorf("%s: cuota %d fechaVencimiento: %w", owner, c.Numero, err)
		}
		paidDate, err := parseOptionalDate(c.FechaPago)
		if err != nil {
			return nil, fmt.Errorf("%s: cuota %d fechaPago: %w", owner, c.Numero, err)
		}
		inst := loan.Installment{
			Number:   c.Numero,
			Amount:   c.Monto.InexactFloat64(),
			DueDate:  dueDate,
			Status:   instStatus,
			PaidDate: paidDate,
		}
		if c.MontoPagado.Valid {
			amount := c.MontoPagado.Decimal.InexactFloat64()
			inst.PaidAmount = &amount
		}
		out.Installments = append(out.Installments, inst)
		if inst.Number >= lastNumber {
			lastNumber = inst.Number
			out.DueDate = inst.DueDate
		}
	}
	return out, nil
}
