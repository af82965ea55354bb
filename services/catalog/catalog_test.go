package catalog

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"tourbook/database/docstore"
	tourRepo "tourbook/database/repository/tour"
	"tourbook/models"
	"tourbook/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func walk(location string) models.TourInput {
	return models.TourInput{
		Title:       "Walk in " + location,
		Description: "Two hours on foot",
		Price:       30,
		Duration:    "2h",
		Location:    location,
		Coordinates: models.Coordinates{Lat: 41.39, Lng: 2.17},
	}
}

func TestCreateAndGetTour(t *testing.T) {
	svc := NewCatalogService(tourRepo.NewTourRepo(docstore.NewMemoryStore()), nil, zap.NewNop())
	ctx := context.Background()

	created, err := svc.CreateTour(ctx, walk("Barcelona"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Nil(t, created.Rating)
	assert.Equal(t, 0, created.ReviewCount)
	assert.Equal(t, int64(1), created.Version)

	got, err := svc.GetTour(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestGetTour_Errors(t *testing.T) {
	svc := NewCatalogService(tourRepo.NewTourRepo(docstore.NewMemoryStore()), nil, nil)

	_, err := svc.GetTour(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = svc.GetTour(context.Background(), " ")
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestListToursByLocation_ExactMatch(t *testing.T) {
	svc := NewCatalogService(tourRepo.NewTourRepo(docstore.NewMemoryStore()), nil, nil)
	ctx := context.Background()

	for _, loc := range []string{"Porto", "Porto", "porto", "Lisbon"} {
		_, err := svc.CreateTour(ctx, walk(loc))
		require.NoError(t, err)
	}

	porto, err := svc.ListToursByLocation(ctx, "Porto")
	require.NoError(t, err)
	assert.Len(t, porto, 2)

	none, err := svc.ListToursByLocation(ctx, "Faro")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := svc.ListTours(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = svc.ListToursByLocation(ctx, "")
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestCreateTour_Validation(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewCatalogService(tourRepo.NewTourRepo(store), nil, nil)

	bad := map[string]func(*models.TourInput){
		"no title":      func(in *models.TourInput) { in.Title = "" },
		"no location":   func(in *models.TourInput) { in.Location = " " },
		"negative":      func(in *models.TourInput) { in.Price = -1 },
		"nan price":     func(in *models.TourInput) { in.Price = math.NaN() },
		"latitude 91":   func(in *models.TourInput) { in.Coordinates.Lat = 91 },
		"longitude 181": func(in *models.TourInput) { in.Coordinates.Lng = -181 },
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			in := walk("Rome")
			mutate(&in)
			_, err := svc.CreateTour(context.Background(), in)
			assert.ErrorIs(t, err, services.ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, store.Count("tours"))
}

func TestUpdateTour_KeepsDerivedFieldsAndRefreshesCache(t *testing.T) {
	store := docstore.NewMemoryStore()
	repo := tourRepo.NewTourRepo(store)
	cache := NewMemoryTourCache(time.Minute)
	svc := NewCatalogService(repo, cache, nil)
	ctx := context.Background()

	created, err := svc.CreateTour(ctx, walk("Oslo"))
	require.NoError(t, err)

	rating := 4.5
	require.NoError(t, repo.UpdateRatingIfVersion(ctx, created.ID, created.Version, &rating, 2))
	rated, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	svc.Refresh(ctx, rated)

	in := walk("Oslo")
	in.Price = 45
	updated, err := svc.UpdateTour(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 45.0, updated.Price)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 4.5, *updated.Rating)
	assert.Equal(t, 2, updated.ReviewCount)
	assert.Equal(t, int64(3), updated.Version)

	cached, ok := cache.Get(ctx, created.ID)
	require.True(t, ok)
	assert.Equal(t, 45.0, cached.Price)
	assert.Equal(t, int64(3), cached.Version)

	_, err = svc.UpdateTour(ctx, "missing", in)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteTour(t *testing.T) {
	cache := NewMemoryTourCache(time.Minute)
	svc := NewCatalogService(tourRepo.NewTourRepo(docstore.NewMemoryStore()), cache, nil)
	ctx := context.Background()

	created, err := svc.CreateTour(ctx, walk("Riga"))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTour(ctx, created.ID))

	_, ok := cache.Get(ctx, created.ID)
	assert.False(t, ok)
	_, err = svc.GetTour(ctx, created.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteTour(ctx, created.ID), services.ErrNotFound)
}

// pausingRepo holds its first GetByID, after the store read, until release
// is closed.
type pausingRepo struct {
	tourRepo.TourRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newPausingRepo(repo tourRepo.TourRepository) *pausingRepo {
	return &pausingRepo{TourRepository: repo, read: make(chan struct{}), release: make(chan struct{})}
}

func (r *pausingRepo) GetByID(ctx context.Context, id string) (*models.Tour, error) {
	tour, err := r.TourRepository.GetByID(ctx, id)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return tour, err
}

func TestGetTour_SlowReadDoesNotHideNewerRating(t *testing.T) {
	base := tourRepo.NewTourRepo(docstore.NewMemoryStore())
	ctx := context.Background()
	id, err := base.Create(ctx, walk("Tallinn"))
	require.NoError(t, err)

	repo := newPausingRepo(base)
	svc := NewCatalogService(repo, NewMemoryTourCache(time.Minute), nil)

	slow := make(chan *models.Tour, 1)
	go func() {
		tour, err := svc.GetTour(ctx, id)
		assert.NoError(t, err)
		slow <- tour
	}()
	<-repo.read

	// A rating write commits while the first reader still holds version 1.
	rating := 4.0
	require.NoError(t, base.UpdateRatingIfVersion(ctx, id, 1, &rating, 1))
	fresh, err := base.GetByID(ctx, id)
	require.NoError(t, err)
	svc.Refresh(ctx, fresh)

	close(repo.release)
	old := <-slow
	require.NotNil(t, old)
	assert.Nil(t, old.Rating)

	got, err := svc.GetTour(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4.0, *got.Rating)
	assert.Equal(t, int64(2), got.Version)
}

func TestGetTour_SlowReadDoesNotResurrectDeletedTour(t *testing.T) {
	base := tourRepo.NewTourRepo(docstore.NewMemoryStore())
	ctx := context.Background()
	id, err := base.Create(ctx, walk("Vilnius"))
	require.NoError(t, err)

	repo := newPausingRepo(base)
	svc := NewCatalogService(repo, NewMemoryTourCache(time.Minute), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.GetTour(ctx, id)
		assert.NoError(t, err)
	}()
	<-repo.read

	require.NoError(t, svc.DeleteTour(ctx, id))
	close(repo.release)
	<-done

	_, err = svc.GetTour(ctx, id)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestMemoryTourCache_KeepsNewestVersion(t *testing.T) {
	cache := NewMemoryTourCache(time.Minute)
	ctx := context.Background()
	rating := 3.0

	cache.Set(ctx, &models.Tour{ID: "t1", Version: 2, Rating: &rating})
	cache.Set(ctx, &models.Tour{ID: "t1", Version: 1})
	got, ok := cache.Get(ctx, "t1")
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Version)
	require.NotNil(t, got.Rating)

	*got.Rating = 1
	again, _ := cache.Get(ctx, "t1")
	assert.Equal(t, 3.0, *again.Rating)

	cache.Invalidate(ctx, "t1")
	cache.Set(ctx, &models.Tour{ID: "t1", Version: 3})
	_, ok = cache.Get(ctx, "t1")
	assert.False(t, ok)
}

func TestMemoryTourCache_Expiry(t *testing.T) {
	cache := NewMemoryTourCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	cache.Set(ctx, &models.Tour{ID: "t1", Version: 5})
	cache.Invalidate(ctx, "t2")

	now = now.Add(time.Minute)
	_, ok := cache.Get(ctx, "t1")
	assert.False(t, ok)

	// Expired entries, tombstones included, no longer block older versions.
	cache.Set(ctx, &models.Tour{ID: "t1", Version: 1})
	cache.Set(ctx, &models.Tour{ID: "t2", Version: 1})
	_, ok = cache.Get(ctx, "t1")
	assert.True(t, ok)
	_, ok = cache.Get(ctx, "t2")
	assert.True(t, ok)
}
