package narration

// VoiceProfile selects which synthesized voice narration uses and how
// it is tuned. RemoteVoiceID is the character archetype sent to the
// remote synthesis service; Rate, Pitch and Volume tune host-local
// synthesis (1.0 is the host default for each).
type VoiceProfile struct {
	ID            string
	DisplayName   string
	RemoteVoiceID string
	Rate          float64
	Pitch         float64
	Volume        float64
}

// dominanceThreshold is the minimum share an emotional aspect needs to
// override the player's voice selection for one utterance.
const dominanceThreshold = 0.6

// DefaultProfileID is the profile used when nothing is persisted.
const DefaultProfileID = "narrator"

// Profiles is the static voice profile table. Keyed by profile ID; the
// aspect names in dominance maps share this keyspace.
var Profiles = map[string]VoiceProfile{
	"narrator": {
		ID: "narrator", DisplayName: "Narrator",
		RemoteVoiceID: "narrator", Rate: 1.0, Pitch: 1.0, Volume: 1.0,
	},
	"sage": {
		ID: "sage", DisplayName: "The Sage",
		RemoteVoiceID: "sage", Rate: 0.85, Pitch: 0.8, Volume: 1.0,
	},
	"trickster": {
		ID: "trickster", DisplayName: "The Trickster",
		RemoteVoiceID: "trickster", Rate: 1.2, Pitch: 1.3, Volume: 1.0,
	},
	"warrior": {
		ID: "warrior", DisplayName: "The Warrior",
		RemoteVoiceID: "warrior", Rate: 1.0, Pitch: 0.7, Volume: 1.0,
	},
	"mystic": {
		ID: "mystic", DisplayName: "The Mystic",
		RemoteVoiceID: "mystic", Rate: 0.9, Pitch: 1.1, Volume: 0.9,
	},
}

// ProfileByID returns the named profile, or the default when the ID is
// unknown or empty.
func ProfileByID(id string) VoiceProfile {
	if p, ok := Profiles[id]; ok {
		return p
	}
	return Profiles[DefaultProfileID]
}

// resolveProfile picks the effective voice for one utterance. An
// explicit override wins; else the strongest aspect in the dominance
// map, if it clears the threshold and maps to a profile; else the
// persisted selection. The dominance override applies to this call
// only.
func resolveProfile(explicit *VoiceProfile, dominance map[string]float64, persistedID string) VoiceProfile {
	if explicit != nil {
		return *explicit
	}

	var (
		topAspect string
		topValue  float64
	)
	for aspect, value := range dominance {
		if value > topValue {
			topAspect, topValue = aspect, value
		}
	}
	if topValue > dominanceThreshold {
		if p, ok := Profiles[topAspect]; ok {
			return p
		}
	}

	return ProfileByID(persistedID)
}
