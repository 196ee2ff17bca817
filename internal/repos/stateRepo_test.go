package repos_test

import (
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelibin/hughbridge/internal/models"
	"github.com/wheelibin/hughbridge/internal/repos"
)

func newRepo(t *testing.T) *repos.StateRepo {
	db, err := repos.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	repo, err := repos.NewStateRepo(logger, db)
	require.NoError(t, err)
	return repo
}

func change(index int, state models.LightState, at time.Time) models.StateChange {
	return models.StateChange{Index: index, Name: "Lamp", UniqueID: "F0:08:D1:D2:CB:4C:00:00-00", State: state, Time: at}
}

func Test_Latest(t *testing.T) {

	t.Run("nothing saved", func(t *testing.T) {
		t.Parallel()
		repo := newRepo(t)

		_, ok, err := repo.Latest(0)

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should return the most recent save", func(t *testing.T) {
		t.Parallel()

		// arrange
		repo := newRepo(t)
		at := time.Now()
		require.NoError(t, repo.Save(change(0, models.LightState{On: true, Brightness: 10}, at)))
		expected := models.LightState{On: true, Brightness: 200, Hue: 9000, Saturation: 20, ColorTemperature: 370, ColorMode: models.ColorModeColorTemperature}
		require.NoError(t, repo.Apply(change(0, expected, at.Add(time.Second))))

		// act
		got, ok, err := repo.Latest(0)

		// assert
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, expected, got.State)
		assert.Equal(t, "Lamp", got.Name)
		assert.Equal(t, "F0:08:D1:D2:CB:4C:00:00-00", got.UniqueID)
		assert.WithinDuration(t, at.Add(time.Second), got.Time, time.Millisecond)
	})
}

func Test_History(t *testing.T) {

	t.Run("should list changes newest first up to the limit", func(t *testing.T) {
		t.Parallel()

		// arrange
		repo := newRepo(t)
		at := time.Now()
		for i := 1; i <= 5; i++ {
			require.NoError(t, repo.Save(change(0, models.LightState{Brightness: uint8(i)}, at.Add(time.Duration(i)*time.Second))))
		}
		require.NoError(t, repo.Save(change(1, models.LightState{Brightness: 99}, at)))

		// act
		history, err := repo.History(0, 3)

		// assert
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, uint8(5), history[0].State.Brightness)
		assert.Equal(t, uint8(4), history[1].State.Brightness)
		assert.Equal(t, uint8(3), history[2].State.Brightness)
	})

	t.Run("unknown light has no history", func(t *testing.T) {
		t.Parallel()
		repo := newRepo(t)

		history, err := repo.History(3, 10)

		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func Test_NewStateRepo_ClearsPreviousRun(t *testing.T) {
	db, err := repos.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})

	first, err := repos.NewStateRepo(logger, db)
	require.NoError(t, err)
	require.NoError(t, first.Save(change(0, models.LightState{On: true}, time.Now())))

	second, err := repos.NewStateRepo(logger, db)
	require.NoError(t, err)

	_, ok, err := second.Latest(0)
	require.NoError(t, err)
	assert.False(t, ok)
	history, err := second.History(0, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
