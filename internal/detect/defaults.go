package detect

import "time"

// Reference trigger parameters for the built-in catalog.
const (
	TapperClicks      = 10
	TapperWindow      = 3 * time.Second
	ExplorerScrollPx  = 20000
	PatientDwell      = 3 * time.Minute
	SpeedsterSteps    = 5
	SpeedsterWindow   = 10 * time.Second
	ShakerReversals   = 8
	ShakerWindow      = 2 * time.Second
	HackerClicks      = 7
	HackerClickWindow = 1500 * time.Millisecond
	HackerPressMin    = 2 * time.Second
)

// KonamiCode is the classic ten-token input sequence.
var KonamiCode = []string{
	"up", "up", "down", "down", "left", "right", "left", "right", "b", "a",
}

// HackerCode is the typed back-door sequence for the composite detector.
var HackerCode = []string{"s", "u", "d", "o"}

// HackerNavPath is the ordered navigation back door.
var HackerNavPath = []string{"home", "about", "home", "about"}

// DefaultSet builds the reference detector set for the built-in catalog.
// sessionStart anchors the dwell-time detector; pass time.Now at host
// startup.
func DefaultSet(sessionStart time.Time) []Detector {
	return []Detector{
		NewSequence("konami", KonamiCode),
		NewRapidRepeat("tapper", EventClick, TapperClicks, TapperWindow),
		NewCumulative("explorer", EventScroll, ExplorerScrollPx),
		NewDuration("patient", PatientDwell, sessionStart),
		NewRapidRepeat("speedster", EventNavStep, SpeedsterSteps, SpeedsterWindow),
		NewReversal("shaker", ShakerReversals, ShakerWindow),
		NewComposite("hacker",
			NewSequence("hacker", HackerCode),
			NewRapidRepeat("hacker", EventClick, HackerClicks, HackerClickWindow),
			NewLongPress("hacker", HackerPressMin),
			NewNavSequence("hacker", HackerNavPath),
		),
	}
}
