package timeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vignette/engine/animator"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/Carmen-Shannon/oxy-vignette/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clip(name string, duration float32, loop bool) *model.AnimationClip {
	return &model.AnimationClip{Name: name, Duration: duration, Loop: loop}
}

func register(t *testing.T, c Coordinator, id string, clips ...*model.AnimationClip) {
	t.Helper()
	node := scene.NewNode(id)
	m, err := animator.NewMixer(clips, []*scene.Node{node})
	require.NoError(t, err)
	require.NoError(t, c.RegisterActor(id, node, m))
}

func newFight(t *testing.T) Coordinator {
	t.Helper()
	c := NewCoordinator()
	register(t, c, "winner", clip("punch", 1, false), clip("powerPunch", 1.5, false), clip("idle", 2, true))
	register(t, c, "loser", clip("dodge", 0.5, false), clip("idle", 2, true))
	return c
}

func TestSelectClips(t *testing.T) {
	set := DefaultClipSet()
	for _, tc := range []struct {
		move   string
		winner string
	}{
		{CriticalHit, "powerPunch"},
		{"punch", "punch"},
		{"critical hit", "punch"},
		{"", "punch"},
		{"Critical Hit ", "punch"},
	} {
		sel := SelectClips(tc.move, set)
		assert.Equal(t, tc.winner, sel.WinnerClip, tc.move)
		assert.Equal(t, "dodge", sel.LoserClip, tc.move)
	}
}

func TestRegisterActorErrors(t *testing.T) {
	c := newFight(t)
	assert.Equal(t, []string{"winner", "loser"}, c.Actors())

	node := scene.NewNode("dup")
	m, err := animator.NewMixer(nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, c.RegisterActor("winner", node, m), ErrDuplicateActor)
	assert.Error(t, c.RegisterActor("nobody", node, nil))

	assert.ErrorIs(t, c.Play("ghost", "punch", PlayOptions{}), ErrUnknownActor)
	assert.ErrorIs(t, c.Play("winner", "kick", PlayOptions{}), animator.ErrUnknownClip)
	_, err = c.OnFinished("ghost", func(string, string) {})
	assert.ErrorIs(t, err, ErrUnknownActor)
}

func TestAdvanceRejectsRepeatedTick(t *testing.T) {
	c := newFight(t)
	require.NoError(t, c.Advance(1, 0.016))
	assert.ErrorIs(t, c.Advance(1, 0.016), ErrTickAlreadyAdvanced)
	assert.ErrorIs(t, c.Advance(0, 0.016), ErrTickAlreadyAdvanced)
	assert.NoError(t, c.Advance(2, 0.016))
}

func TestFinishedFiresOncePerCompletion(t *testing.T) {
	c := newFight(t)

	var events []string
	_, err := c.OnFinished("winner", func(actor, clip string) { events = append(events, actor+":"+clip) })
	require.NoError(t, err)

	require.NoError(t, c.Play("winner", "idle", PlayOptions{}))
	require.NoError(t, c.Play("winner", "punch", PlayOptions{LoopOnce: true}))

	for tick := uint64(1); tick <= 100; tick++ {
		require.NoError(t, c.Advance(tick, 0.1))
	}
	assert.Equal(t, []string{"winner:punch"}, events)

	st, ok := c.ActorState("winner")
	require.True(t, ok)
	assert.Equal(t, "punch", st.ActiveClip)
	assert.True(t, st.Finished)
}

func TestFightSequenceOrder(t *testing.T) {
	c := newFight(t)

	var events []string
	for _, id := range c.Actors() {
		_, err := c.OnFinished(id, func(actor, clip string) { events = append(events, actor+":"+clip) })
		require.NoError(t, err)
	}

	completions := 0
	sel := SelectClips("punch", DefaultClipSet())
	require.NoError(t, c.RunSequence(FightSequence("winner", "loser", sel, func() {
		completions++
		events = append(events, "complete")
	})))
	assert.Equal(t, 2, c.PendingSteps())

	st, _ := c.ActorState("loser")
	assert.Empty(t, st.ActiveClip, "loser waits for the winner")

	for tick := uint64(1); tick <= 40; tick++ {
		require.NoError(t, c.Advance(tick, 0.1))
	}
	assert.Equal(t, []string{"winner:punch", "loser:dodge", "complete"}, events)
	assert.Equal(t, 1, completions)
	assert.Equal(t, 0, c.PendingSteps())
}

func TestCriticalHitSequenceUsesPowerClip(t *testing.T) {
	c := newFight(t)
	sel := SelectClips(CriticalHit, DefaultClipSet())
	require.NoError(t, c.RunSequence(FightSequence("winner", "loser", sel, nil)))

	st, _ := c.ActorState("winner")
	assert.Equal(t, "powerPunch", st.ActiveClip)
}

func TestRunSequenceValidation(t *testing.T) {
	c := newFight(t)

	assert.ErrorIs(t, c.RunSequence(nil), ErrEmptySequence)
	assert.ErrorIs(t, c.RunSequence([]Step{{ActorID: "ghost", Clip: "punch"}}), ErrUnknownActor)
	assert.ErrorIs(t, c.RunSequence([]Step{{ActorID: "winner", Clip: "kick"}}), animator.ErrUnknownClip)
	assert.ErrorIs(t, c.RunSequence([]Step{
		{ActorID: "winner", Clip: "punch"},
		{ActorID: "loser", Clip: "idle"},
	}), ErrLoopingStep)
	assert.Equal(t, 0, c.PendingSteps())

	require.NoError(t, c.RunSequence([]Step{{ActorID: "winner", Clip: "punch"}}))
	assert.ErrorIs(t, c.RunSequence([]Step{{ActorID: "loser", Clip: "dodge"}}), ErrSequenceRunning)
}

func TestUnsubscribeAllSilencesEverything(t *testing.T) {
	c := newFight(t)

	calls := 0
	_, err := c.OnFinished("winner", func(string, string) { calls++ })
	require.NoError(t, err)
	done := 0
	require.NoError(t, c.RunSequence([]Step{{ActorID: "winner", Clip: "punch", OnDone: func() { done++ }}}))

	c.UnsubscribeAll()
	c.UnsubscribeAll()
	assert.Equal(t, 0, c.PendingSteps())

	for tick := uint64(1); tick <= 20; tick++ {
		require.NoError(t, c.Advance(tick, 0.1))
	}
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, done)
}

func TestListenerUnsubscribe(t *testing.T) {
	c := newFight(t)
	calls := 0
	unsubscribe, err := c.OnFinished("loser", func(string, string) { calls++ })
	require.NoError(t, err)
	unsubscribe()

	require.NoError(t, c.Play("loser", "dodge", PlayOptions{LoopOnce: true}))
	require.NoError(t, c.Advance(1, 1))
	assert.Equal(t, 0, calls)
}
