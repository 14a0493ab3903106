package store_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	st "github.com/querykit/report-delivery/internal/store"
	"github.com/querykit/report-delivery/internal/store/model"
	"gorm.io/gorm"
)

const (
	insertQueryStm = "INSERT INTO queries (name, file_path, department) VALUES ('%s', '%s', '%s');"
)

var _ = Describe("query store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		gormdb = newTestDB()
		s = st.NewStore(gormdb)
	})

	AfterEach(func() {
		cleanTables(gormdb)
	})

	Context("get", func() {
		It("finds an existing query", func() {
			tx := gormdb.Exec(fmt.Sprintf(insertQueryStm, "Active Employee Email", "/queries/active_employee_email.sql", "HR"))
			Expect(tx.Error).To(BeNil())

			queries, err := s.Query().List(context.TODO(), nil, nil)
			Expect(err).To(BeNil())
			Expect(queries).To(HaveLen(1))

			query, err := s.Query().Get(context.TODO(), queries[0].ID)
			Expect(err).To(BeNil())
			Expect(query.Name).To(Equal("Active Employee Email"))
			Expect(query.Department).To(Equal("HR"))
		})

		It("returns not found for an unknown id", func() {
			_, err := s.Query().Get(context.TODO(), 4242)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("filters by department", func() {
			tx := gormdb.Exec(fmt.Sprintf(insertQueryStm, "q1", "/queries/q1.sql", "HR"))
			Expect(tx.Error).To(BeNil())
			tx = gormdb.Exec(fmt.Sprintf(insertQueryStm, "q2", "/queries/q2.sql", "Finance"))
			Expect(tx.Error).To(BeNil())

			queries, err := s.Query().List(context.TODO(), st.NewQueryFilter().ByDepartment("HR"), nil)
			Expect(err).To(BeNil())
			Expect(queries).To(HaveLen(1))
			Expect(queries[0].Name).To(Equal("q1"))
		})
	})

	Context("create", func() {
		It("creates a query", func() {
			query, err := s.Query().Create(context.TODO(), model.Query{
				Name:       "Pension Contributions",
				FilePath:   "/queries/pension_contributions.sql",
				Department: "Finance",
			})
			Expect(err).To(BeNil())
			Expect(query.ID).NotTo(BeZero())
		})

		It("rejects duplicate names", func() {
			_, err := s.Query().Create(context.TODO(), model.Query{Name: "dup", FilePath: "/queries/a.sql"})
			Expect(err).To(BeNil())
			_, err = s.Query().Create(context.TODO(), model.Query{Name: "dup", FilePath: "/queries/b.sql"})
			Expect(err).To(MatchError(st.ErrDuplicateKey))
		})
	})

	Context("update", func() {
		It("updates metadata", func() {
			query, err := s.Query().Create(context.TODO(), model.Query{Name: "old", FilePath: "/queries/old.sql"})
			Expect(err).To(BeNil())

			query.Name = "new"
			query.Department = "HR"
			updated, err := s.Query().Update(context.TODO(), *query)
			Expect(err).To(BeNil())
			Expect(updated.Name).To(Equal("new"))
			Expect(updated.Department).To(Equal("HR"))
		})
	})

	Context("delete", func() {
		It("deletes and tolerates missing rows", func() {
			query, err := s.Query().Create(context.TODO(), model.Query{Name: "gone", FilePath: "/queries/gone.sql"})
			Expect(err).To(BeNil())

			Expect(s.Query().Delete(context.TODO(), query.ID)).To(Succeed())
			_, err = s.Query().Get(context.TODO(), query.ID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))

			Expect(s.Query().Delete(context.TODO(), query.ID)).To(Succeed())
		})
	})
})
