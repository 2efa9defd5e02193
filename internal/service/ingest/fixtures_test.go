package ingest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmehdipour/judgment-gateway/internal/model"
)

func sampleEvent() model.InboundEvent {
	return model.InboundEvent{
		IssuerID:         "civil-service",
		JudgmentID:       "J123",
		EventTimestamp:   time.Date(2024, 1, 1, 10, 0, 0, 123456789, time.UTC),
		SiteID:           "420219",
		CaseReference:    "1234567890123456",
		CaseNumber:       "0AB12345",
		Total:            decimal.RequireFromString("11.00"),
		OrderDate:        model.NewDate(2024, 1, 1),
		RegistrationType: model.RegistrationRegistered,
		Defendant1: model.Defendant{
			Name:    "A B",
			Address: model.Address{Lines: []string{"X"}, Postcode: "AB1 1AB"},
		},
	}
}

func withSecondDefendant(ev model.InboundEvent) model.InboundEvent {
	ev.Defendant2 = &model.Defendant{
		Name:    "C D",
		Address: model.Address{Lines: []string{"1 High St", "Town"}, Postcode: "CD2 2CD"},
	}
	return ev
}
