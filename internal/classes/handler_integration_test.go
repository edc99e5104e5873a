package classes_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"class-service/common/logger"
	commonmetrics "class-service/common/metrics"
	"class-service/internal/classes"
	"class-service/internal/db"
	"class-service/internal/metrics"
	"class-service/testing/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var classTables = []string{"class_schedule", "classes", "users"}

func newDBRouter(database *bun.DB) chi.Router {
	log := logger.NewDiscard()
	repo := classes.NewRepository(database, commonmetrics.NewMock().Database)
	svc := classes.NewService(repo, nil, log)
	handler := classes.NewHandler(svc, log, metrics.NewMock())

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func listClasses(t *testing.T, router http.Handler, query string) []classes.ClassListing {
	t.Helper()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/classes"+query, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var listings []classes.ClassListing
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listings))
	return listings
}

func offering(name, subject string, slots ...string) string {
	return fmt.Sprintf(`{
		"name": %q,
		"avatar": "https://example.com/%s.png",
		"whatsapp": "5511900000000",
		"bio": "Teaches %s",
		"subject": %q,
		"cost": 75,
		"schedule": [%s]
	}`, name, name, subject, subject, strings.Join(slots, ","))
}

func slot(weekDay int, from, to string) string {
	return fmt.Sprintf(`{"week_day": %d, "from": %q, "to": %q}`, weekDay, from, to)
}

func TestClassesWithPostgres(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	defer pg.Cleanup(t)

	ctx := context.Background()
	require.NoError(t, db.RunMigrations(ctx, pg.DB, classes.Tables()...))

	router := newDBRouter(pg.DB)

	t.Run("CreateThenListBySubject", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		w := postClass(router, offering("Diego", "Math", slot(1, "08:00", "12:00")))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Empty(t, w.Body.String())

		listings := listClasses(t, router, "?subject=Math")
		require.Len(t, listings, 1)

		got := listings[0]
		assert.NotZero(t, got.ID)
		assert.NotZero(t, got.UserID)
		assert.Equal(t, "Math", got.Subject)
		assert.Equal(t, float64(75), got.Cost)
		assert.Equal(t, "Diego", got.Name)
		assert.Equal(t, "https://example.com/Diego.png", got.Avatar)
		assert.Equal(t, "5511900000000", got.Whatsapp)
		assert.Equal(t, "Teaches Math", got.Bio)
	})

	t.Run("StoresMinutesSinceMidnight", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		w := postClass(router, offering("Ana", "Physics", slot(2, "08:00", "09:30")))
		require.Equal(t, http.StatusCreated, w.Code)

		var rows []classes.ClassSchedule
		require.NoError(t, pg.DB.NewSelect().Model(&rows).Scan(ctx))
		require.Len(t, rows, 1)
		require.NotNil(t, rows[0].WeekDay)
		assert.Equal(t, 2, *rows[0].WeekDay)
		assert.Equal(t, 480, rows[0].From)
		assert.Equal(t, 570, rows[0].To)
	})

	t.Run("SubjectFilterIsExact", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		for _, body := range []string{
			offering("A", "Math", slot(1, "08:00", "09:00")),
			offering("B", "Mathematics", slot(1, "08:00", "09:00")),
			offering("C", "Biology", slot(1, "08:00", "09:00")),
			offering("D", "Math", slot(2, "10:00", "11:00")),
		} {
			require.Equal(t, http.StatusCreated, postClass(router, body).Code)
		}

		listings := listClasses(t, router, "?subject=Math")
		require.Len(t, listings, 2)
		for _, l := range listings {
			assert.Equal(t, "Math", l.Subject)
		}
	})

	t.Run("WeekDayFilter", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		require.Equal(t, http.StatusCreated, postClass(router, offering("A", "Math", slot(1, "08:00", "09:00"))).Code)
		require.Equal(t, http.StatusCreated, postClass(router, offering("B", "Math", slot(4, "08:00", "09:00"))).Code)

		listings := listClasses(t, router, "?week_day=4")
		require.Len(t, listings, 1)
		assert.Equal(t, "B", listings[0].Name)

		assert.Empty(t, listClasses(t, router, "?week_day=friday"))
	})

	t.Run("TimeFilterMatchesOnlyEqualBounds", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		// Covers 08:00 but does not start and end there.
		require.Equal(t, http.StatusCreated, postClass(router, offering("Range", "Math", slot(1, "07:00", "10:00"))).Code)
		// Degenerate slot starting and ending at 08:00.
		require.Equal(t, http.StatusCreated, postClass(router, offering("Point", "Math", slot(1, "08:00", "08:00"))).Code)

		listings := listClasses(t, router, "?time=08:00")
		require.Len(t, listings, 1)
		assert.Equal(t, "Point", listings[0].Name)

		var rows []classes.ClassSchedule
		require.NoError(t, pg.DB.NewSelect().Model(&rows).Where("class_id = ?", listings[0].ID).Scan(ctx))
		require.Len(t, rows, 1)
		assert.Equal(t, 480, rows[0].From)
		assert.Equal(t, 480, rows[0].To)

		assert.Empty(t, listClasses(t, router, "?time=soon"))
	})

	t.Run("CombinedFilters", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		require.Equal(t, http.StatusCreated, postClass(router, offering("A", "Math", slot(1, "08:00", "08:00"))).Code)
		require.Equal(t, http.StatusCreated, postClass(router, offering("B", "Math", slot(2, "08:00", "08:00"))).Code)
		require.Equal(t, http.StatusCreated, postClass(router, offering("C", "Art", slot(1, "08:00", "08:00"))).Code)

		listings := listClasses(t, router, "?subject=Math&week_day=1&time=08:00")
		require.Len(t, listings, 1)
		assert.Equal(t, "A", listings[0].Name)
	})

	t.Run("FailedScheduleInsertRollsBack", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		// week_day overflows the integer column, failing the batch insert
		// after the user and class rows were written.
		body := offering("Ghost", "Math", slot(1, "08:00", "09:00"), `{"week_day": 5000000000, "from": "10:00", "to": "11:00"}`)
		w := postClass(router, body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Unexpected error while creating new class"}`, w.Body.String())

		assert.Zero(t, pg.CountRows(t, "users"))
		assert.Zero(t, pg.CountRows(t, "classes"))
		assert.Zero(t, pg.CountRows(t, "class_schedule"))
		assert.Empty(t, listClasses(t, router, "?subject=Math"))
	})

	t.Run("MalformedTimeRollsBack", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		w := postClass(router, offering("Ghost", "Math", slot(1, "8 o'clock", "09:00")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, pg.CountRows(t, "users"))
		assert.Zero(t, pg.CountRows(t, "classes"))
	})

	t.Run("MissingFieldsAreRejected", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		w := postClass(router, `{"schedule": [{"from": "08:00", "to": "09:00"}]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Unexpected error while creating new class"}`, w.Body.String())
		assert.Zero(t, pg.CountRows(t, "users"))
		assert.Zero(t, pg.CountRows(t, "classes"))
		assert.Zero(t, pg.CountRows(t, "class_schedule"))
	})

	t.Run("MissingCostIsRejected", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		body := `{"name": "Ana", "avatar": "a", "whatsapp": "w", "bio": "b", "subject": "Math", "schedule": []}`
		w := postClass(router, body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, pg.CountRows(t, "users"))
		assert.Zero(t, pg.CountRows(t, "classes"))
	})

	t.Run("MissingWeekDayRollsBack", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		w := postClass(router, offering("Ghost", "Math", `{"from": "08:00", "to": "09:00"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, pg.CountRows(t, "users"))
		assert.Zero(t, pg.CountRows(t, "classes"))
		assert.Zero(t, pg.CountRows(t, "class_schedule"))
	})

	t.Run("EmptyProfileStringsAreStored", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		body := `{"name": "", "avatar": "", "whatsapp": "", "bio": "", "subject": "Art", "cost": 0, "schedule": [{"week_day": 1, "from": "08:00", "to": "09:00"}]}`
		w := postClass(router, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		listings := listClasses(t, router, "?subject=Art")
		require.Len(t, listings, 1)
		assert.Equal(t, "", listings[0].Name)
		assert.Equal(t, float64(0), listings[0].Cost)
	})

	t.Run("ListIsCappedAtTwenty", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		for i := 0; i < 25; i++ {
			body := offering(fmt.Sprintf("Tutor%d", i), "History", slot(i%7, "08:00", "09:00"))
			require.Equal(t, http.StatusCreated, postClass(router, body).Code)
		}

		assert.Len(t, listClasses(t, router, ""), classes.ListLimit)
	})

	t.Run("EmptyScheduleIsAccepted", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		w := postClass(router, offering("NoSlots", "Music"))
		assert.Equal(t, http.StatusCreated, w.Code)

		assert.Equal(t, 1, pg.CountRows(t, "classes"))
		assert.Zero(t, pg.CountRows(t, "class_schedule"))
		// Inner join on class_schedule hides classes without slots.
		assert.Empty(t, listClasses(t, router, "?subject=Music"))
	})

	t.Run("OneRowPerMatchingSlot", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		w := postClass(router, offering("Busy", "Math", slot(1, "08:00", "09:00"), slot(3, "08:00", "09:00")))
		require.Equal(t, http.StatusCreated, w.Code)

		assert.Len(t, listClasses(t, router, "?subject=Math"), 2)
		assert.Len(t, listClasses(t, router, "?subject=Math&week_day=3"), 1)
	})

	t.Run("ConcurrentCreates", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, classTables...)

		const n = 8
		codes := make(chan int, n)
		for i := 0; i < n; i++ {
			go func(i int) {
				codes <- postClass(router, offering(fmt.Sprintf("T%d", i), "Math", slot(1, "08:00", "09:00"))).Code
			}(i)
		}

		timeout := time.After(10 * time.Second)
		for i := 0; i < n; i++ {
			select {
			case code := <-codes:
				assert.Equal(t, http.StatusCreated, code)
			case <-timeout:
				t.Fatal("concurrent creates did not finish")
			}
		}

		assert.Equal(t, n, pg.CountRows(t, "users"))
		assert.Equal(t, n, pg.CountRows(t, "class_schedule"))
	})
}
