package loan

import (
	"fmt"
	"math"
	"time"

	"loan-tracker/internal/pkg/apperrors"
)

// MaxInstallmentCount bounds a schedule to 100 years of monthly installments.
const MaxInstallmentCount = 1200

func PeriodsPerYear(periodType PeriodType) (int, error) {
	switch periodType {
	case PeriodWeekly:
		return 52, nil
	case PeriodBiweekly:
		return 24, nil
	case PeriodMonthly:
		return 12, nil
	}
	return 0, apperrors.NewValidationError("periodType", "unknown period type "+string(periodType))
}

// ComputePeriodicPayment returns the fixed installment that amortizes principal over
// installmentCount periods. A zero rate splits the principal evenly. No rounding.
func ComputePeriodicPayment(principal, annualRatePercent float64, installmentCount int, periodType PeriodType) (float64, error) {
	ppy, err := PeriodsPerYear(periodType)
	if err != nil {
		return 0, err
	}
	if err := validateInstallmentCount(installmentCount); err != nil {
		return 0, err
	}

	n := float64(installmentCount)
	r := annualRatePercent / 100 / float64(ppy)
	var payment float64
	if r == 0 {
		payment = principal / n
	} else {
		// Same annuity formula with (1+r)^-n, which stays finite for long terms.
		payment = principal * r / (1 - math.Pow(1+r, -n))
	}
	if math.IsNaN(payment) || math.IsInf(payment, 0) {
		return 0, apperrors.NewValidationError("principal", "loan terms do not produce a finite periodic payment")
	}
	return payment, nil
}

func validateInstallmentCount(installmentCount int) error {
	if installmentCount < 1 {
		return apperrors.NewValidationError("installmentCount", "installment count must be at least 1")
	}
	if installmentCount > MaxInstallmentCount {
		return apperrors.NewValidationError("installmentCount", fmt.Sprintf("installment count cannot exceed %d", MaxInstallmentCount))
	}
	return nil
}

// GenerateSchedule lays out installmentCount pending installments. Due dates are
// offsets from startDate, never from the previous installment: weekly +7i days,
// biweekly +15i days, monthly +i calendar months.
//
// Monthly dates follow time.AddDate normalization, so a day that does not exist in
// the target month rolls into the next one: Jan 31 + 1 month is Mar 3 (Mar 2 in a
// leap year).
func GenerateSchedule(startDate time.Time, installmentCount int, periodType PeriodType, periodicAmount float64) ([]Installment, error) {
	if _, err := PeriodsPerYear(periodType); err != nil {
		return nil, err
	}
	if err := validateInstallmentCount(installmentCount); err != nil {
		return nil, err
	}

	schedule := make([]Installment, 0, installmentCount)
	for i := 1; i <= installmentCount; i++ {
		schedule = append(schedule, Installment{
			Number:  i,
			Amount:  periodicAmount,
			DueDate: installmentDueDate(startDate, i, periodType),
			Status:  InstallmentPending,
		})
	}
	return schedule, nil
}

func installmentDueDate(start time.Time, i int, periodType PeriodType) time.Time {
	switch periodType {
	case PeriodWeekly:
		return start.AddDate(0, 0, 7*i)
	case PeriodBiweekly:
		return start.AddDate(0, 0, 15*i)
	default:
		return start.AddDate(0, i, 0)
	}
}
