package service_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/querykit/report-delivery/internal/service"
	"github.com/querykit/report-delivery/internal/store"
	"github.com/querykit/report-delivery/internal/store/model"
)

var _ = Describe("query log service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		svc    *service.QueryLogService
	)

	BeforeAll(func() {
		gormdb = newTestDB()
		s = store.NewStore(gormdb)
		svc = service.NewQueryLogService(s)
	})

	AfterEach(func() {
		cleanTables(gormdb)
	})

	Context("list", func() {
		It("filters by user and status", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertLogStm, 1, 1, 100, "HR", model.QueryLogStatusSuccess)).Error).To(BeNil())
			Expect(gormdb.Exec(fmt.Sprintf(insertLogStm, 2, 1, 100, "HR", model.QueryLogStatusFailed)).Error).To(BeNil())
			Expect(gormdb.Exec(fmt.Sprintf(insertLogStm, 3, 2, 200, "Finance", model.QueryLogStatusSuccess)).Error).To(BeNil())

			logs, err := svc.ListLogs(context.TODO(), &service.QueryLogFilter{UserID: 100, Status: model.QueryLogStatusSuccess})
			Expect(err).To(BeNil())
			Expect(logs).To(HaveLen(1))
			Expect(logs[0].ID).To(Equal(uint(1)))
		})

		It("paginates", func() {
			for i := 1; i <= 5; i++ {
				Expect(gormdb.Exec(fmt.Sprintf(insertPendingLogStm, i, 1, 100, "HR")).Error).To(BeNil())
			}

			logs, err := svc.ListLogs(context.TODO(), &service.QueryLogFilter{Page: 2, PerPage: 2})
			Expect(err).To(BeNil())
			Expect(logs).To(HaveLen(2))
		})
	})

	Context("get", func() {
		It("returns a typed error for an unknown id", func() {
			_, err := svc.GetLog(context.TODO(), 99)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})
	})

	Context("stats", func() {
		It("counts logs by status", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertLogStm, 1, 1, 100, "HR", model.QueryLogStatusSuccess)).Error).To(BeNil())
			Expect(gormdb.Exec(fmt.Sprintf(insertLogStm, 2, 1, 100, "HR", model.QueryLogStatusSuccess)).Error).To(BeNil())
			Expect(gormdb.Exec(fmt.Sprintf(insertPendingLogStm, 3, 1, 100, "HR")).Error).To(BeNil())

			stats, err := svc.Stats(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.TotalByStatus[model.QueryLogStatusSuccess]).To(Equal(int64(2)))
			Expect(stats.TotalByStatus[model.QueryLogStatusPending]).To(Equal(int64(1)))
		})
	})
})
