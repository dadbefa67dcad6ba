package validate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Name     string   `validate:"notblank" label:"Fuel type"`
	Quantity float64  `validate:"finite,gte=0" label:"Quantity"`
	Routes   []string `validate:"dive,notblank" label:"Evacuation route"`
	Source   string   `validate:"ne=total" label:"Revenue source"`
}

func TestStruct(t *testing.T) {
	ok := samplePayload{Name: "Jet A-1", Quantity: 1200, Routes: []string{"north"}, Source: "parking"}
	assert.NoError(t, Struct(ok))

	tests := []struct {
		name string
		mod  func(p *samplePayload)
		msg  string
	}{
		{"blank text", func(p *samplePayload) { p.Name = "  " }, "Fuel type cannot be empty"},
		{"negative", func(p *samplePayload) { p.Quantity = -1 }, "Quantity cannot be negative"},
		{"nan", func(p *samplePayload) { p.Quantity = math.NaN() }, "Quantity must be a finite number"},
		{"inf", func(p *samplePayload) { p.Quantity = math.Inf(1) }, "Quantity must be a finite number"},
		{"blank element", func(p *samplePayload) { p.Routes = []string{"north", ""} }, "Evacuation route[1] cannot be empty"},
		{"reserved", func(p *samplePayload) { p.Source = "total" }, `Revenue source cannot be "total"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ok
			p.Routes = append([]string(nil), ok.Routes...)
			tt.mod(&p)
			err := Struct(p)
			require.Error(t, err)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestStructEmptySliceIsValid(t *testing.T) {
	p := samplePayload{Name: "Avgas", Source: "fuel_sales"}
	assert.NoError(t, Struct(p))
}

func TestRequiredText(t *testing.T) {
	assert.NoError(t, RequiredText("Jet A-1", "Fuel type"))
	for _, blank := range []string{"", "   ", "\t\n"} {
		err := RequiredText(blank, "Fuel type")
		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Fuel type", verr.Field)
		assert.Equal(t, "Fuel type cannot be empty", verr.Message)
	}
}
