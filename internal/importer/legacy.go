// Package importer loads the JSON export of the legacy browser-based tracker into
// PostgreSQL. Legacy string ids are mapped to stable UUIDs, so running an import
// twice updates rows instead of duplicating them.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type legacyExport struct {
	Users    []legacyUser    `json:"users"`
	Clients  []legacyClient  `json:"clients"`
	Loans    []legacyLoan    `json:"loans"`
	Payments []legacyPayment `json:"payments"`
}

type legacyUser struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Name         string `json:"name"`
	Email        string `json:"email"`
}

type legacyClient struct {
	ID            string `json:"id"`
	Nombre        string `json:"nombre"`
	Apellido      string `json:"apellido"`
	Documento     string `json:"documento"`
	Telefono      string `json:"telefono"`
	Email         string `json:"email"`
	Direccion     string `json:"direccion"`
	FechaRegistro string `json:"fechaRegistro"`
	Activo        *bool  `json:"activo"`
}

type legacyLoan struct {
	ID               string          `json:"id"`
	ClienteID        string          `json:"clienteId"`
	ClienteNombre    string          `json:"clienteNombre"`
	Monto            decimal.Decimal `json:"monto"`
	TasaInteres      decimal.Decimal `json:"tasaInteres"`
	TipoPlazo        string          `json:"tipoPlazo"`
	CantidadCuotas   int             `json:"cantidadCuotas"`
	FechaInicio      string          `json:"fechaInicio"`
	FechaVencimiento string          `json:"fechaVencimiento"`
	Estado           string          `json:"estado"`
	MontoPendiente   decimal.Decimal `json:"montoPendiente"`
	CuotaMensual     decimal.Decimal `json:"cuotaMensual"`
	CuotasPagadas    int             `json:"cuotasPagadas"`
	CuotasTotales    int             `json:"cuotasTotales"`
	Cuotas           []legacyCuota   `json:"cuotas"`
}

type legacyCuota struct {
	Numero           int                 `json:"numero"`
	Monto            decimal.Decimal     `json:"monto"`
	FechaVencimiento string              `json:"fechaVencimiento"`
	FechaPago        string              `json:"fechaPago"`
	Estado           string              `json:"estado"`
	MontoPagado      decimal.NullDecimal `json:"montoPagado"`
}

type legacyPayment struct {
	ID            string          `json:"id"`
	PrestamoID    string          `json:"prestamoId"`
	ClienteID     string          `json:"clienteId"`
	ClienteNombre string          `json:"clienteNombre"`
	Monto         decimal.Decimal `json:"monto"`
	Fecha         string          `json:"fecha"`
	Tipo          string          `json:"tipo"`
	NumeroCuota   *int            `json:"numeroCuota"`
	Observaciones string          `json:"observaciones"`
}

func decodeExport(r io.Reader) (*legacyExport, error) {
	var export legacyExport
	dec := json.NewDecoder(r)
	if err := dec.Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode legacy export: %w", err)
	}
	return &export, nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// parseDate accepts RFC3339, "YYYY-MM-DD HH:MM:SS" and "YYYY-MM-DD". Values without a
// zone are read as UTC. The result is truncated to whole seconds.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func parseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
