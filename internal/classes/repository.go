package classes

import (
	"context"
	"fmt"
	"time"

	"class-service/common/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]ClassListing, error)
	Create(ctx context.Context, req *CreateClassRequest) (*Class, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.DatabaseMetrics
}

func NewRepository(db *bun.DB, m *metrics.DatabaseMetrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

// listQuery is the base listing query before any filter is applied.
func listQuery(db bun.IDB, dest *[]ClassListing) *bun.SelectQuery {
	return db.NewSelect().
		Model(dest).
		ColumnExpr("classes.id, classes.subject, classes.cost, classes.user_id").
		ColumnExpr("users.name, users.avatar, users.whatsapp, users.bio").
		Join("JOIN users ON users.id = classes.user_id").
		Join("JOIN class_schedule ON class_schedule.class_id = classes.id").
		Limit(ListLimit)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]ClassListing, error) {
	start := time.Now()
	listings := make([]ClassListing, 0)
	err := filter.Apply(listQuery(r.db, &listings)).Scan(ctx)

	r.metrics.RecordQuery(ctx, "select", "classes", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return listings, nil
}

// Create writes the user, the class and its schedule in one transaction.
// Any error rolls the whole transaction back.
func (r *repository) Create(ctx context.Context, req *CreateClassRequest) (*Class, error) {
	var class *Class

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := req.user()
		if err := r.insert(ctx, tx, "users", user); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		class = req.class(user.ID)
		if err := r.insert(ctx, tx, "classes", class); err != nil {
			return fmt.Errorf("insert class: %w", err)
		}

		schedules, err := toSchedules(class.ID, req.Schedule)
		if err != nil {
			return err
		}
		if len(schedules) == 0 {
			return nil
		}
		if err := r.insert(ctx, tx, "class_schedule", &schedules); err != nil {
			return fmt.Errorf("insert class schedule: %w", err)
		}
		return nil
	})

	r.metrics.RecordTransaction(ctx, "create_class", err)

	if err != nil {
		return nil, err
	}
	return class, nil
}

// insert runs a single or batch insert; generated ids are written back into model.
func (r *repository) insert(ctx context.Context, tx bun.Tx, table string, model interface{}) error {
	start := time.Now()
	_, err := tx.NewInsert().Model(model).Returning("id").Exec(ctx)

	r.metrics.RecordQuery(ctx, "insert", table, time.Since(start), err)

	return err
}
