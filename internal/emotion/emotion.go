// Package emotion parses the emotion-tagged reply protocol and reduces the
// emotion scores to a single dominant label.
package emotion

// Vector holds the four scores reported by the model. The protocol asks for
// 0..5 but the range is not enforced here.
type Vector struct {
	Happy   int `json:"happy"`
	Angry   int `json:"angry"`
	Sad     int `json:"sad"`
	Excited int `json:"excited"`
}

// Dominant is the single emotion shown by the presentation layer. The numeric
// value is the face index the avatar expects.
type Dominant int

const (
	Neutral Dominant = iota
	Happy
	Angry
	Sad
	Excited
)

var dominantNames = [...]string{"neutral", "happy", "angry", "sad", "excited"}

func (d Dominant) String() string {
	if d < 0 || int(d) >= len(dominantNames) {
		return "unknown"
	}
	return dominantNames[d]
}

// DominantOf returns the emotion strictly greater than the other three.
// Any tie at the top, all zeros included, yields Neutral.
func DominantOf(v Vector) Dominant {
	scores := [...]struct {
		d Dominant
		n int
	}{
		{Happy, v.Happy},
		{Angry, v.Angry},
		{Sad, v.Sad},
		{Excited, v.Excited},
	}

	best, bestN, tied := Neutral, 0, false
	for i, s := range scores {
		switch {
		case i == 0 || s.n > bestN:
			best, bestN, tied = s.d, s.n, false
		case s.n == bestN:
			tied = true
		}
	}
	if tied {
		return Neutral
	}
	return best
}

// Reply is a parsed model answer.
type Reply struct {
	Vector Vector
	Text   string
}

// Dominant is shorthand for DominantOf(r.Vector).
func (r Reply) Dominant() Dominant {
	return DominantOf(r.Vector)
}
