package timeline

// CriticalHit is the move type that selects the winner's power attack.
const CriticalHit = "Critical Hit"

// ClipSet names the clips a vignette uses.
type ClipSet struct {
	// Attack is the winner's default attack clip.
	Attack string `toml:"attack" yaml:"attack" env:"ATTACK"`

	// PowerAttack replaces Attack when the move type is CriticalHit.
	PowerAttack string `toml:"power_attack" yaml:"power_attack" env:"POWER_ATTACK"`

	// Defense is the loser's defensive clip.
	Defense string `toml:"defense" yaml:"defense" env:"DEFENSE"`

	// Idle is an optional looping clip started on both actors while they wait.
	Idle string `toml:"idle" yaml:"idle" env:"IDLE"`
}

// DefaultClipSet returns the clip names shipped with the stock actor bundles.
func DefaultClipSet() ClipSet {
	return ClipSet{
		Attack:      "punch",
		PowerAttack: "powerPunch",
		Defense:     "dodge",
		Idle:        "idle",
	}
}

// Selection is the outcome of clip selection for one vignette.
type Selection struct {
	WinnerClip string
	LoserClip  string
}

// SelectClips picks the winner's and loser's clips for a move type. Only the exact
// string CriticalHit selects the power attack.
//
// Parameters:
//   - moveType: the move that decided the fight
//   - set: the available clip names
//
// Returns:
//   - Selection: the chosen clips
func SelectClips(moveType string, set ClipSet) Selection {
	winner := set.Attack
	if moveType == CriticalHit {
		winner = set.PowerAttack
	}
	return Selection{WinnerClip: winner, LoserClip: set.Defense}
}

// FightSequence builds the two-stage vignette sequence: the winner attacks, then the loser
// reacts, then onComplete runs.
//
// Parameters:
//   - winnerID, loserID: the registered actor ids
//   - sel: the selected clips
//   - onComplete: called after the loser's clip finishes
//
// Returns:
//   - []Step: the ordered steps
func FightSequence(winnerID, loserID string, sel Selection, onComplete func()) []Step {
	return []Step{
		{ActorID: winnerID, Clip: sel.WinnerClip},
		{ActorID: loserID, Clip: sel.LoserClip, OnDone: onComplete},
	}
}
