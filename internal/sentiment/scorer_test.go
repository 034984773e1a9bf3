package sentiment

import (
	"strings"
	"testing"
)

func TestScore_Range(t *testing.T) {
	s := New()
	inputs := []string{
		"",
		"ok",
		"I love this, it's amazing!",
		"terrible, broken garbage",
		"THIS IS COMPLETELY UNACCEPTABLE AND BROKEN!!!",
		"the quick brown fox jumps over the lazy dog",
		strings.Repeat("amazing wonderful ", 50),
		strings.Repeat("terrible awful ", 50),
	}
	for _, in := range inputs {
		got := s.Score(in)
		if got < -1 || got > 1 {
			t.Errorf("Score(%q) = %v, want within [-1, 1]", in, got)
		}
	}
}

func TestScore_Empty(t *testing.T) {
	s := New()
	for _, in := range []string{"", " ", "a", "\n"} {
		if got := s.Score(in); got != 0 {
			t.Errorf("Score(%q) = %v, want 0", in, got)
		}
	}
}

func TestScore_Positive(t *testing.T) {
	s := New()
	got := s.Score("I love this, it's amazing!")
	if got <= 0.5 {
		t.Errorf("Score = %v, want > 0.5", got)
	}
}

func TestScore_Negative(t *testing.T) {
	s := New()
	got := s.Score("terrible, broken garbage")
	if got >= 0 {
		t.Errorf("Score = %v, want < 0", got)
	}
}

func TestScore_AllCapsAnger(t *testing.T) {
	s := New()
	got := s.Score("THIS IS COMPLETELY UNACCEPTABLE AND BROKEN!!!")
	if got >= -0.5 {
		t.Errorf("Score = %v, want < -0.5 for an all-caps angry message", got)
	}
}

func TestScore_Negation(t *testing.T) {
	s := New()

	// A negated positive must never read as strongly positive.
	if got := s.Score("not good at all"); got > 0.1 {
		t.Errorf("Score(\"not good at all\") = %v, want <= 0.1", got)
	}

	// Contraction negation: "isn't good" flips the positive hit.
	if got := s.Score("this really isn't good"); got > 0.1 {
		t.Errorf("Score = %v, want <= 0.1 for contraction negation", got)
	}

	// A negated negative softens toward positive.
	negatedNeg := s.Score("it is not broken")
	plainNeg := s.Score("it is broken")
	if negatedNeg <= plainNeg {
		t.Errorf("negated negative %v should score above plain negative %v", negatedNeg, plainNeg)
	}
}

func TestScore_Intensifiers(t *testing.T) {
	s := New()
	plain := s.Score("this is frustrating and slow, but the export is useful")
	intensified := s.Score("this is extremely frustrating and slow, but the export is useful")
	if intensified >= plain {
		t.Errorf("intensified score %v should be below plain score %v", intensified, plain)
	}
}

func TestScore_ExclamationAmplification(t *testing.T) {
	s := New()
	plain := s.Score("great work, the sync is fast and reliable but the app feels broken sometimes")
	amplified := s.Score("great work!!! the sync is fast and reliable but the app feels broken sometimes")
	if amplified <= plain {
		t.Errorf("exclamation-amplified positive %v should exceed plain %v", amplified, plain)
	}
}

func TestScore_NeutralWhenNoLexiconHits(t *testing.T) {
	s := New()
	if got := s.Score("the quarterly report covers regional logistics"); got != 0 {
		t.Errorf("Score = %v, want 0 for text with no lexicon hits", got)
	}
}

func TestScore_Rounding(t *testing.T) {
	s := New()
	got := s.Score("good but slow and confusing")
	// pos=1, neg=2 -> (1-2)/3 = -0.333... rounded to -0.33
	if got != -0.33 {
		t.Errorf("Score = %v, want -0.33", got)
	}
}
