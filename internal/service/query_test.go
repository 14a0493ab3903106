package service_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/querykit/report-delivery/internal/queryexec"
	"github.com/querykit/report-delivery/internal/service"
	"github.com/querykit/report-delivery/internal/store"
	"github.com/querykit/report-delivery/internal/store/model"
)

var _ = Describe("query service", Ordered, func() {
	var (
		s           store.Store
		gormdb      *gorm.DB
		queryFolder string
		svc         *service.QueryService
	)

	BeforeAll(func() {
		gormdb = newTestDB()
		s = store.NewStore(gormdb)
		queryFolder = GinkgoT().TempDir()
		svc = service.NewQueryService(s, queryexec.NewExecutor(gormdb), queryFolder)
	})

	AfterEach(func() {
		cleanTables(gormdb)
	})

	Context("list", func() {
		It("lists all registered queries", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertQueryStm, 1, "Active Employee Email", "hr/actives.sql", "HR")).Error).To(BeNil())
			Expect(gormdb.Exec(fmt.Sprintf(insertQueryStm, 2, "Quarterly Spend", "finance/spend.sql", "Finance")).Error).To(BeNil())

			queries, err := svc.ListQueries(context.TODO(), nil)
			Expect(err).To(BeNil())
			Expect(queries).To(HaveLen(2))
		})

		It("filters by department", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertQueryStm, 1, "Active Employee Email", "hr/actives.sql", "HR")).Error).To(BeNil())
			Expect(gormdb.Exec(fmt.Sprintf(insertQueryStm, 2, "Quarterly Spend", "finance/spend.sql", "Finance")).Error).To(BeNil())

			queries, err := svc.ListQueries(context.TODO(), &service.QueryFilter{Department: "Finance"})
			Expect(err).To(BeNil())
			Expect(queries).To(HaveLen(1))
			Expect(queries[0].Name).To(Equal("Quarterly Spend"))
		})
	})

	Context("get", func() {
		It("returns a typed error for an unknown id", func() {
			_, err := svc.GetQuery(context.TODO(), 42)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})
	})

	Context("create", func() {
		It("rejects a duplicated name", func() {
			_, err := svc.CreateQuery(context.TODO(), model.Query{Name: "Active Employee Email", FilePath: "hr/actives.sql", Department: "HR"})
			Expect(err).To(BeNil())

			_, err = svc.CreateQuery(context.TODO(), model.Query{Name: "Active Employee Email", FilePath: "hr/actives_v2.sql", Department: "HR"})
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidRequest{}))
		})
	})

	Context("preview", func() {
		BeforeEach(func() {
			Expect(gormdb.Exec("CREATE TABLE IF NOT EXISTS preview_rows (id INTEGER PRIMARY KEY, name TEXT)").Error).To(BeNil())
			Expect(gormdb.Exec("DELETE FROM preview_rows").Error).To(BeNil())
			for i := 1; i <= 25; i++ {
				Expect(gormdb.Exec("INSERT INTO preview_rows (id, name) VALUES (?, ?)", i, "row").Error).To(BeNil())
			}

			Expect(os.MkdirAll(filepath.Join(queryFolder, "hr"), 0o755)).To(Succeed())
			template := "SELECT id, name FROM preview_rows ORDER BY id"
			Expect(os.WriteFile(filepath.Join(queryFolder, "hr", "preview.sql"), []byte(template), 0o644)).To(Succeed())
			Expect(gormdb.Exec(fmt.Sprintf(insertQueryStm, 1, "Preview Rows", "hr/preview.sql", "HR")).Error).To(BeNil())
		})

		It("returns one page with the unsliced total", func() {
			rs, err := svc.Preview(context.TODO(), 1, nil, 1, 10)
			Expect(err).To(BeNil())
			Expect(rs.Rows).To(HaveLen(10))
			Expect(rs.TotalCount).To(Equal(25))

			rs, err = svc.Preview(context.TODO(), 1, nil, 3, 10)
			Expect(err).To(BeNil())
			Expect(rs.Rows).To(HaveLen(5))
			Expect(rs.TotalCount).To(Equal(25))
		})

		It("rejects an invalid page before touching the database", func() {
			_, err := svc.Preview(context.TODO(), 1, nil, 0, 10)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidRequest{}))
		})

		It("returns a typed error for an unknown query", func() {
			_, err := svc.Preview(context.TODO(), 99, nil, 1, 10)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})
	})

	Context("declared parameters", func() {
		It("reads the template header", func() {
			Expect(os.MkdirAll(filepath.Join(queryFolder, "hr"), 0o755)).To(Succeed())
			template := "/* Parameters: department:string, year:int */\nSELECT 1"
			Expect(os.WriteFile(filepath.Join(queryFolder, "hr", "actives.sql"), []byte(template), 0o644)).To(Succeed())
			Expect(gormdb.Exec(fmt.Sprintf(insertQueryStm, 1, "Active Employee Email", "hr/actives.sql", "HR")).Error).To(BeNil())

			params, err := svc.DeclaredParameters(context.TODO(), 1)
			Expect(err).To(BeNil())
			Expect(params).To(Equal(map[string]string{"department": "string", "year": "int"}))
		})

		It("fails when the template file is gone", func() {
			Expect(gormdb.Exec(fmt.Sprintf(insertQueryStm, 1, "Orphan", "hr/orphan.sql", "HR")).Error).To(BeNil())

			_, err := svc.DeclaredParameters(context.TODO(), 1)
			Expect(err).NotTo(BeNil())
		})
	})
})
