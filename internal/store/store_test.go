package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/internal/store"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStore connects to AVINA_TEST_DATABASE_URL and applies the schema.
// Every test seeds rows with unique names so runs do not collide.
func setupStore(t *testing.T) *store.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	url := os.Getenv("AVINA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("AVINA_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := store.NewStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func unique(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func TestStore_CostRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	var (
		project = &types.Project{Name: unique("proj"), OpenStackID: uuid.NewString(), UserClass: types.UserClassUC1}
		user    = &types.User{Name: unique("user"), OpenStackID: uuid.NewString(), Role: types.RoleUser, IsActive: true}
		server  = uuid.New()
		begin   = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
		end     = time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC)
	)

	err := s.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Projects.Create(ctx, project); err != nil {
			return err
		}
		user.Project = project.ID
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}
		flavor, err := createFlavor(ctx, tx)
		if err != nil {
			return err
		}
		price := &types.FlavorPrice{Flavor: flavor.ID, UserClass: types.UserClassUC1, UnitPrice: 1000, StartTime: begin}
		if err := tx.FlavorPrices.Create(ctx, price); err != nil {
			return err
		}
		return tx.ServerStates.Create(ctx, &types.ServerState{
			Begin: begin, End: &end, InstanceID: server, InstanceName: "vm",
			Flavor: flavor.ID, Status: "ACTIVE", User: user.ID,
		})
	})
	require.NoError(t, err)

	t.Run("reads the seeded rows", func(t *testing.T) {
		got, err := s.Users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, project.Name, got.ProjectName)

		class, err := s.Projects.UserClassOfServer(ctx, server)
		require.NoError(t, err)
		require.NotNil(t, class)
		assert.Equal(t, types.UserClassUC1, *class)
	})

	t.Run("prices the server inside a read-only transaction", func(t *testing.T) {
		err := s.ReadOnly(ctx, func(src *store.Source) error {
			engine := accounting.NewEngine(src, clock.Real{})
			cost, err := engine.CostForServer(ctx, server, begin, end, false)
			if err != nil {
				return err
			}
			assert.InDelta(t, 304000.0/365, cost.Total(), 1e-6)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("missing rows are not found", func(t *testing.T) {
		_, err := s.ServerStates.Latest(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)

		class, err := s.Projects.UserClassOfServer(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, class)
	})
}

func createFlavor(ctx context.Context, tx *store.Store) (*types.Flavor, error) {
	flavor := &types.Flavor{Name: unique("flavor"), OpenStackID: uuid.NewString(), Weight: 1}
	if err := tx.Flavors.Create(ctx, flavor); err != nil {
		return nil, err
	}
	return flavor, nil
}
