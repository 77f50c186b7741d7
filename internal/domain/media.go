package domain

type JobState string

const (
	JobPending JobState = "pending"
	JobReady   JobState = "ready"
	JobFailed  JobState = "failed"
)

func (s JobState) Terminal() bool {
	return s == JobReady || s == JobFailed
}

func (s JobState) Valid() bool {
	switch s {
	case JobPending, JobReady, JobFailed:
		return true
	default:
		return false
	}
}

type ImageType string

const (
	ImageWorld     ImageType = "world"
	ImageCharacter ImageType = "character"
)

type ImageVariant string

const (
	VariantMaster ImageVariant = "master"
	VariantWeb    ImageVariant = "web"
	VariantThumb  ImageVariant = "thumb"
	VariantAvatar ImageVariant = "avatar"
)

// MediaStatus tracks the two independent generation jobs of a session.
type MediaStatus struct {
	World     JobState
	Character JobState
}

func NewMediaStatus() MediaStatus {
	return MediaStatus{World: JobPending, Character: JobPending}
}

func (s MediaStatus) Terminal() bool {
	return s.World.Terminal() && s.Character.Terminal()
}

func (s MediaStatus) BothPending() bool {
	return s.World == JobPending && s.Character == JobPending
}

// Merge applies a freshly observed status on top of the current one. A job
// that already reached a terminal state never reverts to pending; only an
// explicit Reset does that.
func (s MediaStatus) Merge(next MediaStatus) MediaStatus {
	return MediaStatus{
		World:     mergeJob(s.World, next.World),
		Character: mergeJob(s.Character, next.Character),
	}
}

func mergeJob(current, next JobState) JobState {
	if current.Terminal() && next == JobPending {
		return current
	}
	if !next.Valid() {
		return current
	}
	return next
}

type MediaURLs struct {
	World     string
	Character string
}

// MediaState is everything the rendering layer needs to pick between
// "generating", an image, and "regenerate available".
type MediaState struct {
	Status MediaStatus
	URLs   MediaURLs
	// InitialPass is true until the first generation pass finishes. Chat
	// gating only applies during this window; a later regenerate leaves
	// the conversation usable while new images render.
	InitialPass bool
	// Unavailable is set only when the poller exhausts its error budget,
	// never on transient or cold-start failures.
	Unavailable bool
}

func NewMediaState() MediaState {
	return MediaState{Status: NewMediaStatus(), InitialPass: true}
}

// Reset returns the state a regenerate or forced refresh starts from. The
// initial pass is over by then, so the reset state never gates chat.
func (m MediaState) Reset() MediaState {
	state := NewMediaState()
	state.InitialPass = false
	return state
}
