package domain

type Role string

const (
	RoleLead       Role = "lead"
	RoleSupporting Role = "supporting"
	RoleExtra      Role = "extra"
)

func (r Role) Valid() bool {
	switch r {
	case RoleLead, RoleSupporting, RoleExtra:
		return true
	}
	return false
}

// SortWeight orders roles lead < supporting < extra.
func (r Role) SortWeight() int {
	switch r {
	case RoleLead:
		return 0
	case RoleSupporting:
		return 1
	default:
		return 2
	}
}

type ReferenceImage struct {
	URL         string `json:"url"`
	ExternalURL string `json:"fal_url,omitempty"`
	Role        string `json:"role"`
	Notes       string `json:"notes,omitempty"`
}

type IdentityConditioning struct {
	Enabled  bool    `json:"enabled"`
	Strength float64 `json:"strength"`
}

type LoraConditioning struct {
	Enabled  bool    `json:"enabled"`
	LoraID   string  `json:"lora_id,omitempty"`
	Strength float64 `json:"strength"`
}

type Conditioning struct {
	Identity IdentityConditioning `json:"identity"`
	Lora     LoraConditioning     `json:"lora"`
}

// MaxReferenceImages caps uploaded source photos per cast member.
const MaxReferenceImages = 3

type CastMember struct {
	CastID          string           `json:"cast_id"`
	Name            string           `json:"name"`
	Role            Role             `json:"role"`
	Impact          float64          `json:"impact"`
	PromptExtra     string           `json:"prompt_extra,omitempty"`
	TextTokens      []string         `json:"text_tokens"`
	ReferenceImages []ReferenceImage `json:"reference_images"`
	Conditioning    Conditioning     `json:"conditioning"`
}

// RefURLs returns reference image URLs for backend calls, preferring
// already-uploaded external URLs.
func (c *CastMember) RefURLs() []string {
	urls := make([]string, 0, len(c.ReferenceImages))
	for _, r := range c.ReferenceImages {
		u := r.ExternalURL
		if u == "" {
			u = r.URL
		}
		if u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) > MaxReferenceImages {
		urls = urls[:MaxReferenceImages]
	}
	return urls
}

// CharacterRefs holds the two canonical identity anchors for one cast
// member: ref_a full body, ref_b portrait close-up.
type CharacterRefs struct {
	RefA string `json:"ref_a,omitempty"`
	RefB string `json:"ref_b,omitempty"`
}

type Scene struct {
	SceneID        string   `json:"scene_id"`
	SequenceID     string   `json:"sequence_id"`
	Title          string   `json:"title"`
	Prompt         string   `json:"prompt"`
	DecorAltPrompt string   `json:"decor_alt_prompt,omitempty"`
	Wardrobe       string   `json:"wardrobe,omitempty"`
	StructureType  string   `json:"structure_type,omitempty"`
	Energy         float64  `json:"energy,omitempty"`
	Cast           []string `json:"cast,omitempty"`
	DecorRefs      []string `json:"decor_refs"`
	DecorAlt       string   `json:"decor_alt,omitempty"`
	WardrobeRef    string   `json:"wardrobe_ref,omitempty"`
	DecorLocked    bool     `json:"decor_locked,omitempty"`
	WardrobeLocked bool     `json:"wardrobe_locked,omitempty"`
	OutputURL      string   `json:"output_url,omitempty"`
}

type CastMatrix struct {
	CharacterRefs map[string]*CharacterRefs `json:"character_refs"`
	Scenes        []Scene                   `json:"scenes"`
}
