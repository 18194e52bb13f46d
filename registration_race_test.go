package auth_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/sigma-sevilla/sigma-auth"
	"github.com/sigma-sevilla/sigma-auth/store"
)

// raceDatabases returns the in-memory sqlite database and, when
// SIGMA_TEST_POSTGRES_DSN is set, a postgres database as well.
func raceDatabases(t *testing.T) map[string]*bun.DB {
	t.Helper()
	dbs := map[string]*bun.DB{"sqlite": newTestDB(t)}

	dsn := os.Getenv("SIGMA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Log("SIGMA_TEST_POSTGRES_DSN not set, postgres case skipped")
		return dbs
	}

	ctx := context.Background()
	db, err := store.OpenDSN(ctx, store.DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.CreateSchema(ctx, db, auth.Models()...))
	dbs["postgres"] = db
	return dbs
}

func TestRegistration_SubmitRacingApproveKeepsOneRecord(t *testing.T) {
	for name, db := range raceDatabases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := auth.NewRepositoryManager(db)
			workflow := auth.NewRegistrationWorkflow(repo,
				auth.WithRegistrationLogger(quietLogger{}),
			)

			// matriculas are unique per run so a shared postgres database
			// can be reused between runs
			prefix := fmt.Sprintf("r%d", time.Now().UnixNano()%1_000_000_000)

			for i := 0; i < 10; i++ {
				matricula := fmt.Sprintf("%s-%02d", prefix, i)
				_, err := workflow.Submit(ctx, profile(matricula))
				require.NoError(t, err)

				var wg sync.WaitGroup
				start := make(chan struct{})
				wg.Add(2)
				go func() {
					defer wg.Done()
					<-start
					_, _ = workflow.Approve(ctx, adminActor, matricula)
				}()
				go func() {
					defer wg.Done()
					<-start
					for j := 0; j < 3; j++ {
						_, _ = workflow.Submit(ctx, profile(matricula))
					}
				}()
				close(start)
				wg.Wait()

				userExists, err := repo.Users().ExistsTx(ctx, db, matricula)
				require.NoError(t, err)
				requestExists, err := repo.Requests().ExistsTx(ctx, db, matricula)
				require.NoError(t, err)

				assert.False(t, userExists && requestExists,
					"matricula %s has both a user and a pending request", matricula)
			}
		})
	}
}

func TestRepositoryManager_LockMatriculaIsNoopOnSQLite(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := repo.LockMatriculaTx(ctx, tx, "12345"); err != nil {
			return err
		}
		// the same transaction may lock again without blocking
		return repo.LockMatriculaTx(ctx, tx, "12345")
	})
	assert.NoError(t, err)
}
