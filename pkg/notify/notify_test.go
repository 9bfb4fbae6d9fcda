package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/notify"
)

func TestNotify(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notify Suite")
}

// newFakeSlack stands in for the Slack chat.postMessage endpoint,
// capturing the posted body text for assertions.
func newFakeSlack(capturedText *string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		*capturedText = r.FormValue("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1234.5678"}`))
	})
	return httptest.NewServer(mux)
}

var _ = Describe("SlackNotifier.Notify", func() {
	It("posts a one-line summary for a completed run", func() {
		var captured string
		server := newFakeSlack(&captured)
		defer server.Close()

		n := notify.NewSlackNotifierWithAPIURL("xoxb-test", "#ralph-signals", server.URL+"/")
		summary := domain.RunSummary{
			EntityID: "e1", EntityName: "Riverside United", Outcome: domain.OutcomeCompleted,
			Iterations: 12, SignalsFound: 2, CostUSD: 0.42, Reason: "confidence reached the stopping bound",
		}

		err := n.Notify(context.Background(), summary)
		Expect(err).NotTo(HaveOccurred())
		Expect(captured).To(ContainSubstring("Riverside United"))
		Expect(captured).To(ContainSubstring("2 signal(s)"))
	})

	It("posts a skipped-run line without an outcome", func() {
		var captured string
		server := newFakeSlack(&captured)
		defer server.Close()

		n := notify.NewSlackNotifierWithAPIURL("xoxb-test", "#ralph-signals", server.URL+"/")
		err := n.Notify(context.Background(), domain.RunSummary{EntityID: "e2", EntityName: "Lakeside FC", Skipped: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(captured).To(ContainSubstring("skipped"))
	})
})

var _ = Describe("NoopNotifier.Notify", func() {
	It("discards every summary without error", func() {
		Expect(notify.NoopNotifier{}.Notify(context.Background(), domain.RunSummary{})).To(Succeed())
	})
})

