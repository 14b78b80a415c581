package docstore_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("recruitdash_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{"test": "recruitdash-docstore"}),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	return url
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	url := setupPostgres(t)

	Convey("Given a PostgreSQL store", t, func() {
		exerciseStore(t, func() docstore.Store {
			s, err := docstore.OpenPostgres(context.Background(), url)
			if err != nil {
				t.Fatalf("open postgres: %v", err)
			}
			resetTable(t, url)
			return s
		})
	})

	Convey("Given two instances sharing the database", t, func() {
		ctx := context.Background()
		resetTable(t, url)
		a, err := docstore.OpenPostgres(ctx, url)
		So(err, ShouldBeNil)
		defer a.Close()
		b, err := docstore.OpenPostgres(ctx, url)
		So(err, ShouldBeNil)
		defer b.Close()

		sub, err := a.Watch(ctx, testPath)
		So(err, ShouldBeNil)
		defer sub.Close()

		Convey("When one instance writes", func() {
			_, err := b.Put(ctx, testPath, json.RawMessage(`{"n":1}`))
			So(err, ShouldBeNil)

			Convey("Then the other should be notified", func() {
				doc, ok := receive(t, sub)
				So(ok, ShouldBeTrue)
				So(doc.Version, ShouldEqual, 1)
			})
		})
	})
}

func resetTable(t *testing.T, url string) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close(ctx)
	if _, err := conn.Exec(ctx, "TRUNCATE documents"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
