package events

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", Ordered, func() {
	Context("write", func() {
		It("writes successfully", func() {
			w := newTestWriter()
			ep := NewEventProducer(w)

			body, err := json.Marshal(ReportDeliveredEvent{
				QueryLogID:   1,
				QueryName:    "Active Employee Email",
				UserID:       31688,
				ArtifactPath: "query_results/31688/7/report.csv",
			})
			Expect(err).To(BeNil())

			err = ep.Write(context.TODO(), ReportDeliveredKind, bytes.NewReader(body))
			Expect(err).To(BeNil())
			Eventually(w.Count, "2s").Should(Equal(1))
			Expect(w.Get(0).Context.GetType()).To(Equal(ReportDeliveredKind))
			Expect(w.Get(0).Context.GetSource()).To(Equal("querykit.reports.delivery"))

			err = ep.Write(context.TODO(), ReportFailedKind, bytes.NewReader([]byte(`{"stage":"execute"}`)))
			Expect(err).To(BeNil())

			Eventually(w.Count, "2s").Should(Equal(2))
			Expect(w.Get(1).Context.GetType()).To(Equal(ReportFailedKind))

			ep.Close()
		})

		It("drains the buffer in order", func() {
			w := newTestWriter()
			ep := NewEventProducer(w, WithOutputTopic("reports.test"))

			for i := 0; i < 5; i++ {
				err := ep.Write(context.TODO(), ReportDeliveredKind, bytes.NewReader([]byte{byte('a' + i)}))
				Expect(err).To(BeNil())
			}

			Eventually(w.Count, "2s").Should(Equal(5))
			Expect(w.Topics()).To(HaveEach("reports.test"))

			ep.Close()
		})
	})
})

type testwriter struct {
	lock     sync.Mutex
	messages []cloudevents.Event
	topics   []string
}

func newTestWriter() *testwriter {
	return &testwriter{messages: []cloudevents.Event{}}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.messages = append(t.messages, e)
	t.topics = append(t.topics, topic)
	return nil
}

func (t *testwriter) Close(_ context.Context) error {
	return nil
}

func (t *testwriter) Count() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.messages)
}

func (t *testwriter) Get(i int) cloudevents.Event {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.messages[i]
}

func (t *testwriter) Topics() []string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]string{}, t.topics...)
}
