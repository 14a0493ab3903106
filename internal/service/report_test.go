package service_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/querykit/report-delivery/internal/artifact"
	"github.com/querykit/report-delivery/internal/events"
	"github.com/querykit/report-delivery/internal/notification"
	"github.com/querykit/report-delivery/internal/queryexec"
	"github.com/querykit/report-delivery/internal/service"
	"github.com/querykit/report-delivery/internal/store"
	"github.com/querykit/report-delivery/internal/store/model"
)

const (
	insertQueryStm      = "INSERT INTO queries (id, name, file_path, department) VALUES (%d, '%s', '%s', '%s');"
	insertPendingLogStm = "INSERT INTO query_logs (id, query_id, user_id, department, status) VALUES (%d, %d, %d, '%s', 'PENDING');"
	insertLogStm        = "INSERT INTO query_logs (id, query_id, user_id, department, status) VALUES (%d, %d, %d, '%s', '%s');"
)

type fakeSender struct {
	recipients []notification.Recipient
	err        error
}

func (f *fakeSender) Send(ctx context.Context, recipients []notification.Recipient) error {
	if f.err != nil {
		return f.err
	}
	f.recipients = append(f.recipients, recipients...)
	return nil
}

type fakeScheduler struct {
	savePaths []string
	ats       []time.Time
	err       error
}

func (f *fakeScheduler) ScheduleCleanup(ctx context.Context, savePath string, at time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.savePaths = append(f.savePaths, savePath)
	f.ats = append(f.ats, at)
	return nil
}

var _ = Describe("report service", Ordered, func() {
	var (
		s           store.Store
		gormdb      *gorm.DB
		queryFolder string
		storageRoot string
		sender      *fakeSender
		scheduler   *fakeScheduler
		eventWriter *testwriter
		producer    *events.EventProducer
		svc         *service.ReportService
	)

	newRequest := func() service.ReportRequest {
		return service.ReportRequest{
			QueryID:      1,
			QueryName:    "Active Employee Email",
			FilePath:     "hr/active_employees.sql",
			Department:   "HR",
			QueryParams:  map[string]any{"department": "HR"},
			FirstName:    "alice",
			UserID:       31688,
			EmailAddress: "alice@example.com",
			QueryLogID:   10,
		}
	}

	BeforeAll(func() {
		gormdb = newTestDB()
		s = store.NewStore(gormdb)

		Expect(gormdb.Exec("CREATE TABLE IF NOT EXISTS employees (id INTEGER PRIMARY KEY, name TEXT, email TEXT, department TEXT)").Error).To(BeNil())
		for i := 1; i <= 4; i++ {
			dept := "HR"
			if i%2 == 0 {
				dept = "Finance"
			}
			Expect(gormdb.Exec(fmt.Sprintf(
				"INSERT INTO employees (id, name, email, department) VALUES (%d, 'emp%d', 'emp%d@example.com', '%s')",
				i, i, i, dept)).Error).To(BeNil())
		}

		queryFolder = GinkgoT().TempDir()
		Expect(os.MkdirAll(filepath.Join(queryFolder, "hr"), 0o755)).To(Succeed())
		template := "/* Emails of active employees.\n   Parameters: department:string\n*/\nSELECT name, email FROM employees WHERE department = @department ORDER BY id"
		Expect(os.WriteFile(filepath.Join(queryFolder, "hr", "active_employees.sql"), []byte(template), 0o644)).To(Succeed())
	})

	BeforeEach(func() {
		storageRoot = GinkgoT().TempDir()
		sender = &fakeSender{}
		scheduler = &fakeScheduler{}
		eventWriter = newTestWriter()
		producer = events.NewEventProducer(eventWriter)

		svc = service.NewReportService(
			s,
			queryexec.NewExecutor(gormdb),
			artifact.NewWriter(artifact.NewLocalStore(storageRoot)),
			sender,
			producer,
			scheduler,
			service.ReportConfig{
				QueryFolder:   queryFolder,
				BaseUrl:       "https://reports.local",
				DownloadRoute: "/api/v1/reports/download/",
				Retention:     7 * 24 * time.Hour,
			},
		)
	})

	AfterEach(func() {
		producer.Close()
		cleanTables(gormdb)
	})

	AfterAll(func() {
		Expect(gormdb.Exec("DROP TABLE employees").Error).To(BeNil())
	})

	Context("deliver", func() {
		It("runs the whole pipeline", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertQueryStm, 1, "Active Employee Email", "hr/active_employees.sql", "HR")).Error).To(BeNil())
			Expect(gormdb.Exec(fmt.Sprintf(insertPendingLogStm, 10, 1, 31688, "HR")).Error).To(BeNil())

			savePath, err := svc.Deliver(context.TODO(), newRequest())
			Expect(err).To(BeNil())
			Expect(savePath).To(HavePrefix("query_results/31688/1/"))
			Expect(savePath).To(HaveSuffix(".csv"))

			// the artifact is on disk with a header row and the HR employees
			data, err := os.ReadFile(filepath.Join(storageRoot, savePath))
			Expect(err).To(BeNil())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines).To(HaveLen(3))
			Expect(lines[0]).To(Equal("name,email"))
			Expect(lines[1]).To(Equal("emp1,emp1@example.com"))

			// the requester got the download link with a capitalized name
			Expect(sender.recipients).To(HaveLen(1))
			Expect(sender.recipients[0].EmailAddress).To(Equal("alice@example.com"))
			Expect(sender.recipients[0].Data.FirstName).To(Equal("Alice"))
			Expect(sender.recipients[0].Data.Link).To(Equal("https://reports.local/api/v1/reports/download/" + savePath))

			// the log reached SUCCESS
			log, err := s.QueryLog().Get(context.TODO(), 10)
			Expect(err).To(BeNil())
			Expect(log.Status).To(Equal(model.QueryLogStatusSuccess))

			// cleanup lands one retention window from now
			Expect(scheduler.savePaths).To(Equal([]string{savePath}))
			Expect(scheduler.ats[0]).To(BeTemporally("~", time.Now().Add(7*24*time.Hour), time.Minute))

			Eventually(eventWriter.Count, "2s").Should(Equal(1))
			Expect(eventWriter.Get(0).Context.GetType()).To(Equal(events.ReportDeliveredKind))
		})

		It("rejects an incomplete request", func() {
			req := newRequest()
			req.EmailAddress = ""

			_, err := svc.Deliver(context.TODO(), req)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidRequest{}))
			Expect(service.Stage(err)).To(Equal("validate"))
		})

		It("rejects an unknown format", func() {
			req := newRequest()
			req.Format = "pdf"

			_, err := svc.Deliver(context.TODO(), req)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidRequest{}))
		})

		It("fails when the template is missing", func() {
			req := newRequest()
			req.FilePath = "hr/not_there.sql"

			_, err := svc.Deliver(context.TODO(), req)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrQueryExecution{}))
			Expect(service.Stage(err)).To(Equal("execute"))
		})

		It("keeps the log PENDING when notification fails", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertPendingLogStm, 10, 1, 31688, "HR")).Error).To(BeNil())
			sender.err = fmt.Errorf("smtp relay down")

			_, err := svc.Deliver(context.TODO(), newRequest())
			Expect(err).To(BeAssignableToTypeOf(&service.ErrNotification{}))
			Expect(service.Stage(err)).To(Equal("notify"))

			log, err := s.QueryLog().Get(context.TODO(), 10)
			Expect(err).To(BeNil())
			Expect(log.Status).To(Equal(model.QueryLogStatusPending))
		})

		It("fails on a missing log entry", func() {
			_, err := svc.Deliver(context.TODO(), newRequest())
			Expect(err).To(BeAssignableToTypeOf(&service.ErrStatusUpdate{}))
			Expect(service.Stage(err)).To(Equal("status"))
		})

		It("fails on a log already in a terminal state", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertLogStm, 10, 1, 31688, "HR", model.QueryLogStatusSuccess)).Error).To(BeNil())

			_, err := svc.Deliver(context.TODO(), newRequest())
			Expect(err).To(BeAssignableToTypeOf(&service.ErrStatusUpdate{}))
		})

		It("still delivers when cleanup scheduling fails", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertPendingLogStm, 10, 1, 31688, "HR")).Error).To(BeNil())
			scheduler.err = fmt.Errorf("queue unavailable")

			savePath, err := svc.Deliver(context.TODO(), newRequest())
			Expect(err).To(BeNil())
			Expect(savePath).NotTo(BeEmpty())
		})

		It("renders xlsx when asked", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertPendingLogStm, 10, 1, 31688, "HR")).Error).To(BeNil())

			req := newRequest()
			req.Format = "xlsx"
			savePath, err := svc.Deliver(context.TODO(), req)
			Expect(err).To(BeNil())
			Expect(savePath).To(HaveSuffix(".xlsx"))
		})
	})

	Context("mark failed", func() {
		It("moves a pending log to FAILED", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertPendingLogStm, 10, 1, 31688, "HR")).Error).To(BeNil())

			Expect(svc.MarkFailed(context.TODO(), 10)).To(Succeed())

			log, err := s.QueryLog().Get(context.TODO(), 10)
			Expect(err).To(BeNil())
			Expect(log.Status).To(Equal(model.QueryLogStatusFailed))
		})

		It("leaves a terminal log untouched", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertLogStm, 10, 1, 31688, "HR", model.QueryLogStatusSuccess)).Error).To(BeNil())

			Expect(svc.MarkFailed(context.TODO(), 10)).To(Succeed())

			log, err := s.QueryLog().Get(context.TODO(), 10)
			Expect(err).To(BeNil())
			Expect(log.Status).To(Equal(model.QueryLogStatusSuccess))
		})
	})

	Context("emit failed", func() {
		It("publishes the failure event", func() {
			svc.EmitFailed(context.TODO(), newRequest(), service.NewErrQueryExecution("Active Employee Email", fmt.Errorf("boom")))

			Eventually(eventWriter.Count, "2s").Should(Equal(1))
			Expect(eventWriter.Get(0).Context.GetType()).To(Equal(events.ReportFailedKind))
		})
	})
})
