package sentiment

// Lexicon weights follow a 1–3 scale: heavier means a stronger word.
// The sets were tuned against a labelled ticket corpus; changing a weight
// shifts the escalation thresholds downstream, so treat these as frozen
// configuration rather than a vocabulary to grow casually.

var positiveWords = map[string]float64{
	// strong positive (weight 2)
	"love": 2, "amazing": 2, "excellent": 2, "fantastic": 2, "perfect": 2,
	"outstanding": 2, "incredible": 2, "wonderful": 2, "brilliant": 2,
	// moderate positive (weight 1)
	"great": 1, "good": 1, "nice": 1, "helpful": 1, "thanks": 1, "thank": 1,
	"appreciate": 1, "happy": 1, "pleased": 1, "enjoy": 1, "glad": 1,
	"awesome": 1, "impressive": 1, "smooth": 1, "easy": 1, "convenient": 1,
	"improved": 1, "fast": 1, "reliable": 1, "intuitive": 1, "clean": 1,
	"productive": 1, "efficient": 1, "solid": 1, "useful": 1,
}

var negativeWords = map[string]float64{
	// strong negative (weight 3)
	"terrible": 3, "worst": 3, "garbage": 3, "useless": 3, "unacceptable": 3,
	"awful": 3, "horrible": 3, "disgusting": 3, "pathetic": 3, "hate": 3,
	"scam": 3,
	// moderate negative (weight 2)
	"broken": 2, "frustrated": 2, "frustrating": 2, "angry": 2, "annoying": 2,
	"furious": 2, "ridiculous": 2, "disappointed": 2, "unresponsive": 2,
	"unusable": 2, "failing": 2, "disaster": 2, "outraged": 2, "ruined": 2,
	"wasted": 2,
	// mild negative (weight 1)
	"issue": 1, "problem": 1, "bug": 1, "error": 1, "stuck": 1,
	"slow": 1, "confusing": 1, "difficult": 1, "crash": 1, "crashing": 1,
	"missing": 1, "lost": 1, "fail": 1, "failed": 1, "wrong": 1,
	"concern": 1, "worried": 1, "trouble": 1, "unfortunately": 1,
	"worse": 1, "lag": 1, "delay": 1, "glitch": 1,
}

var negationWords = map[string]struct{}{
	"not": {}, "n't": {}, "no": {}, "never": {}, "neither": {}, "nobody": {},
	"nothing": {}, "nowhere": {}, "hardly": {}, "barely": {}, "without": {},
}

var intensifiers = map[string]float64{
	"very": 1.5, "really": 1.5, "extremely": 2.0, "absolutely": 2.0,
	"completely": 1.5, "totally": 1.5, "so": 1.3, "incredibly": 2.0,
	"beyond": 1.5, "super": 1.5,
}
