package loader

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-vignette/engine/loader/loadertest"
	"github.com/Carmen-Shannon/oxy-vignette/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	winnerURL = "models/winner.glb"
	loserURL  = "models/loser.glb"
)

func newTestLoader(t *testing.T, files fstest.MapFS, options ...LoaderBuilderOption) (AssetLoader, renderer.Renderer, *renderer.HeadlessBackend) {
	t.Helper()
	backend := renderer.NewHeadlessBackend()
	r, err := renderer.NewRenderer(backend, 640, 480)
	require.NoError(t, err)

	l, err := NewAssetLoader(r, NewFSFetcher(files, WithChunkSize(64)), options...)
	require.NoError(t, err)
	t.Cleanup(l.Release)
	return l, r, backend
}

func actorFiles() fstest.MapFS {
	return fstest.MapFS{
		winnerURL: {Data: loadertest.ActorGLB()},
		loserURL:  {Data: loadertest.ActorGLB()},
	}
}

func TestLoadBuildsActorTree(t *testing.T) {
	l, r, _ := newTestLoader(t, actorFiles())

	res, err := l.Load(context.Background(), LoadRequest{
		ActorID:         "winner",
		AssetURL:        winnerURL,
		InitialPosition: mgl32.Vec3{-1, 0, 0},
		InitialScale:    0.5,
		ClipsToStart:    []string{"idle"},
	}, nil)
	require.NoError(t, err)

	root := res.ModelNode
	assert.Equal(t, "winner", root.Name())
	assert.Nil(t, root.Parent())
	assert.Equal(t, mgl32.Vec3{-1, 0, 0}, root.Transform().Translation)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, root.Transform().Scale)

	body := root.Find("body")
	require.NotNil(t, body)
	arm := body.Find("arm")
	require.NotNil(t, arm)
	assert.Same(t, body, arm.Parent())
	assert.InDelta(t, 0.5, arm.Transform().Translation.Y(), 1e-6)
	require.NotNil(t, arm.Mesh())
	assert.NotNil(t, arm.Material().Texture)

	assert.ElementsMatch(t, []string{"punch", "powerPunch", "dodge", "idle"}, res.Mixer.Clips())
	assert.Equal(t, []string{"idle"}, res.ClipsToStart)
	// two meshes and two textures
	assert.Equal(t, 4, r.LiveResources())
}

func TestLoadProgressIsMonotonicAndCompletesOnce(t *testing.T) {
	l, _, _ := newTestLoader(t, actorFiles())

	var seen []Progress
	_, err := l.Load(context.Background(), LoadRequest{ActorID: "winner", AssetURL: winnerURL}, func(actorID string, p Progress) {
		assert.Equal(t, "winner", actorID)
		seen = append(seen, p)
	})
	require.NoError(t, err)
	require.NotEmpty(t, seen)

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].LoadedUnits, seen[i-1].LoadedUnits)
	}
	for _, p := range seen[:len(seen)-1] {
		assert.False(t, p.Done())
		assert.Less(t, p.Percent(), 100.0)
	}
	last := seen[len(seen)-1]
	assert.True(t, last.Done())
	assert.Equal(t, 100.0, last.Percent())
}

func TestLoadReleasesResourcesOnUploadFailure(t *testing.T) {
	l, r, backend := newTestLoader(t, actorFiles())
	backend.FailOn(renderer.OpCreateTexture, errors.New("out of memory"))

	var last Progress
	_, err := l.Load(context.Background(), LoadRequest{ActorID: "loser", AssetURL: loserURL}, func(_ string, p Progress) {
		last = p
	})
	require.Error(t, err)

	var ale *AssetLoadError
	require.ErrorAs(t, err, &ale)
	assert.Equal(t, "loser", ale.ActorID)
	assert.Equal(t, loserURL, ale.URL)
	assert.Contains(t, err.Error(), "out of memory")
	assert.False(t, last.Done())

	assert.Zero(t, r.LiveResources())
	created := backend.Created()
	require.NotEmpty(t, created)
	for _, c := range created {
		assert.Equal(t, 1, backend.ReleaseCount(c.Handle), c.Label)
	}
}

func TestLoadMissingAsset(t *testing.T) {
	l, _, _ := newTestLoader(t, fstest.MapFS{})

	_, err := l.Load(context.Background(), LoadRequest{ActorID: "winner", AssetURL: winnerURL}, nil)
	var ale *AssetLoadError
	require.ErrorAs(t, err, &ale)
	assert.Equal(t, "winner", ale.ActorID)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadInvalidBundle(t *testing.T) {
	l, _, _ := newTestLoader(t, fstest.MapFS{winnerURL: {Data: []byte("not a model")}})

	_, err := l.Load(context.Background(), LoadRequest{ActorID: "winner", AssetURL: winnerURL}, nil)
	assert.ErrorIs(t, err, ErrInvalidGLB)
}

func TestLoadHonoursCancellation(t *testing.T) {
	l, r, _ := newTestLoader(t, actorFiles())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Load(ctx, LoadRequest{ActorID: "winner", AssetURL: winnerURL}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.LiveResources())
}

func TestLoopingClips(t *testing.T) {
	l, _, _ := newTestLoader(t, actorFiles(), WithLoopingClips("idle"))

	res, err := l.Load(context.Background(), LoadRequest{ActorID: "winner", AssetURL: winnerURL}, nil)
	require.NoError(t, err)
	assert.True(t, res.Mixer.Clip("idle").Loop)
	assert.False(t, res.Mixer.Clip("punch").Loop)
	assert.False(t, res.Model.Clip("idle").Loop, "imported clips stay untouched")
}

func TestLoadResultReleaseOnlyWhenDetached(t *testing.T) {
	l, r, _ := newTestLoader(t, actorFiles())

	res, err := l.Load(context.Background(), LoadRequest{ActorID: "winner", AssetURL: winnerURL}, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Release())
	assert.Zero(t, res.Release())
	assert.Zero(t, r.LiveResources())
}

func TestLoadAllJoinsResults(t *testing.T) {
	l, r, _ := newTestLoader(t, actorFiles(), WithWorkers(2))
	tracker := NewProgressTracker("winner", "loser")

	results, err := l.LoadAll(context.Background(), []LoadRequest{
		{ActorID: "winner", AssetURL: winnerURL},
		{ActorID: "loser", AssetURL: loserURL},
	}, func(actorID string, p Progress) {
		tracker.Update(actorID, p)
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "winner", results[0].ActorID)
	assert.Equal(t, "loser", results[1].ActorID)
	assert.Equal(t, 100.0, tracker.Percent())
	assert.Equal(t, 8, r.LiveResources())
}

func TestLoadAllReleasesSuccessfulResultsOnFailure(t *testing.T) {
	files := fstest.MapFS{winnerURL: {Data: loadertest.ActorGLB()}}
	l, r, backend := newTestLoader(t, files)

	results, err := l.LoadAll(context.Background(), []LoadRequest{
		{ActorID: "winner", AssetURL: winnerURL},
		{ActorID: "loser", AssetURL: loserURL},
	}, nil)
	require.Error(t, err)
	assert.Nil(t, results)

	var ale *AssetLoadError
	require.ErrorAs(t, err, &ale)
	assert.Equal(t, "loser", ale.ActorID)

	assert.Zero(t, r.LiveResources())
	for _, c := range backend.Created() {
		assert.Equal(t, 1, backend.ReleaseCount(c.Handle), c.Label)
	}
}

func TestLoadAllReportsFirstRequestWhenBothFail(t *testing.T) {
	l, _, _ := newTestLoader(t, fstest.MapFS{})

	_, err := l.LoadAll(context.Background(), []LoadRequest{
		{ActorID: "winner", AssetURL: winnerURL},
		{ActorID: "loser", AssetURL: loserURL},
	}, nil)

	var ale *AssetLoadError
	require.ErrorAs(t, err, &ale)
	assert.Equal(t, "winner", ale.ActorID)
	assert.Contains(t, err.Error(), winnerURL)
	assert.Contains(t, err.Error(), loserURL)
}

func TestReleasedLoaderRejectsLoads(t *testing.T) {
	l, _, _ := newTestLoader(t, actorFiles())
	l.Release()
	l.Release()

	_, err := l.Load(context.Background(), LoadRequest{ActorID: "winner", AssetURL: winnerURL}, nil)
	assert.ErrorIs(t, err, ErrLoaderReleased)
}

func TestProgressTrackerAveragesRequests(t *testing.T) {
	tracker := NewProgressTracker("a", "b", "a")

	assert.Zero(t, tracker.Percent())
	assert.InDelta(t, 25.0, tracker.Update("a", Progress{LoadedUnits: 500, TotalUnits: 1000}), 1e-9)
	assert.InDelta(t, 75.0, tracker.Update("b", Progress{LoadedUnits: 1000, TotalUnits: 1000}), 1e-9)

	// stale and unknown updates are ignored
	assert.InDelta(t, 75.0, tracker.Update("a", Progress{LoadedUnits: 100, TotalUnits: 1000}), 1e-9)
	assert.InDelta(t, 75.0, tracker.Update("c", Progress{LoadedUnits: 1000, TotalUnits: 1000}), 1e-9)

	p, ok := tracker.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(500), p.LoadedUnits)
}

func TestProgressReporterCapsUntilComplete(t *testing.T) {
	var got []int64
	rep := newProgressReporter("a", func(_ string, p Progress) {
		got = append(got, p.LoadedUnits)
	})
	rep.report(10)
	rep.report(5)
	rep.report(TotalUnits * 2)
	rep.complete()
	rep.complete()

	assert.Equal(t, []int64{10, TotalUnits - 1, TotalUnits}, got)
}

func TestFSFetcherReportsChunks(t *testing.T) {
	data := make([]byte, 1000)
	f := NewFSFetcher(fstest.MapFS{"a.bin": {Data: data}}, WithChunkSize(300))

	var calls [][2]int64
	out, err := f.Fetch(context.Background(), "/a.bin", func(loaded, total int64) {
		calls = append(calls, [2]int64{loaded, total})
	})
	require.NoError(t, err)
	assert.Len(t, out, 1000)
	assert.Equal(t, [][2]int64{{300, 1000}, {600, 1000}, {900, 1000}, {1000, 1000}}, calls)
}

func TestAssetResolver(t *testing.T) {
	r := DefaultAssetResolver()
	assert.Equal(t, "animations/assets/winnerModel.glb", r.WinnerURL())
	assert.Equal(t, "animations/assets/loserModel.glb", r.LoserURL())
	assert.Equal(t, "animations/assets/backgrounds/asgard.jpg", r.BackgroundURL("asgard"))
	assert.Empty(t, r.BackgroundURL(""))
}
