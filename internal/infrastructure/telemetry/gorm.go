package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// InstrumentDB records a span per query on db. Bound values are left out of
// the spans since they carry addresses and payment references. It is a no-op
// when tracing is disabled.
func (p *Provider) InstrumentDB(db *gorm.DB, dbName string) error {
	if p.traces == nil {
		return nil
	}
	plugin := otelgorm.NewPlugin(
		otelgorm.WithTracerProvider(p.traces),
		otelgorm.WithDBName(dbName),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}
	return nil
}
