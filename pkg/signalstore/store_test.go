package signalstore_test

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/signalstore"
)

func TestSignalStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Signal Store Gateway Suite")
}

func newMockGateway() (*signalstore.Gateway, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	Expect(err).NotTo(HaveOccurred())
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return signalstore.New(sqlxDB), mock
}

var _ = Describe("HashSignalID", func() {
	It("is deterministic for the same (entity, category, claim key)", func() {
		a := signalstore.HashSignalID("e1", domain.CategoryCRM, "crm:vendor-seeking")
		b := signalstore.HashSignalID("e1", domain.CategoryCRM, "crm:vendor-seeking")
		Expect(a).To(Equal(b))
	})

	It("differs when any input differs", func() {
		a := signalstore.HashSignalID("e1", domain.CategoryCRM, "crm:vendor-seeking")
		b := signalstore.HashSignalID("e2", domain.CategoryCRM, "crm:vendor-seeking")
		Expect(a).NotTo(Equal(b))
	})
})

var _ = Describe("UpsertSignal", func() {
	It("issues an idempotent insert keyed on signal_id", func() {
		gw, mock := newMockGateway()
		mock.ExpectExec("INSERT INTO validated_signals").WillReturnResult(sqlmock.NewResult(1, 1))

		signal := &domain.ValidatedSignal{
			SignalID:   "sig-1",
			EntityID:   "e1",
			Category:   domain.CategoryCRM,
			Evidence:   []domain.EvidenceItem{{ID: "ev1", URL: "https://x.example", Verified: true}},
			ValidatedAt: time.Now(),
		}
		err := gw.UpsertSignal(context.Background(), signal)
		Expect(err).NotTo(HaveOccurred())
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})
})

var _ = Describe("AlreadyWritten", func() {
	It("reports true when the canonical key's signal_id exists", func() {
		gw, mock := newMockGateway()
		mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := gw.AlreadyWritten(context.Background(), "e1", domain.CategoryCRM, "crm:vendor-seeking")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("reports false when no row matches", func() {
		gw, mock := newMockGateway()
		mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := gw.AlreadyWritten(context.Background(), "e1", domain.CategoryCRM, "crm:other")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
})

var _ = Describe("RecentSignals", func() {
	It("unmarshals stored evidence back into domain types", func() {
		gw, mock := newMockGateway()
		cols := []string{"signal_id", "entity_id", "category", "confidence_before", "confidence_after",
			"evidence", "validation_pass", "validated_at", "temporal_multiplier",
			"fit_score", "priority_tier", "primary_reason", "urgency", "requires_manual_review"}
		mock.ExpectQuery("SELECT signal_id").WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"sig-1", "e1", "CRM", 0.6, 0.75, []byte(`[]`), 3, time.Now(), 1.0,
			80.0, "TIER_2", "seeking a crm vendor", "", false))

		signals, err := gw.RecentSignals(context.Background(), "e1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(signals).To(HaveLen(1))
		Expect(signals[0].Category).To(Equal(domain.CategoryCRM))
		Expect(signals[0].PriorityTier).To(Equal(domain.Tier2))
	})
})
