// Package styles holds the visual style preset catalog. A preset key maps to
// prompt tokens fed to every image generation and to script notes fed to the
// LLM when planning sequences.
package styles

import "strings"

type Preset struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Tokens      []string `json:"tokens"`
	ScriptNotes string   `json:"script_notes"`
}

var presets = []Preset{
	{"anamorphic_cinema", "Anamorphic Cinema", []string{"anamorphic lens", "cinematic lighting", "shallow depth of field", "film grain", "high dynamic range"}, "Modern cinematic coverage with motivated camera and emotional blocking."},
	{"8mm_vintage", "8mm Vintage", []string{"8mm film", "dust and scratches", "soft halation", "vignette", "handheld drift"}, "Nostalgic memory texture. Lean on match-cuts and time-jumps."},
	{"noir_monochrome", "Noir Monochrome", []string{"black and white", "film noir lighting", "high contrast", "smoke haze", "hard shadows"}, "Noir grammar: silhouettes, blinds, reflections, rain, moral tension."},
	{"neon_noir", "Neon Noir", []string{"neon reflections", "wet asphalt", "cyan-magenta glow", "urban night", "hard contrast"}, "City pulse, reflective surfaces, forward motion."},
	{"documentary_handheld", "Documentary Handheld", []string{"handheld camera", "natural light", "documentary realism", "imperfect framing", "authentic moment"}, "Observational shots, organic camera reactivity."},
	{"dreamlike_softfocus", "Dreamlike Softfocus", []string{"soft focus", "bloom", "hazy atmosphere", "gentle lens flare", "slow motion feel"}, "Elliptical transitions, symbolism over plot."},
	{"gritty_urban", "Gritty Urban", []string{"gritty texture", "streetlight sodium glow", "high ISO grain", "raw realism", "urban decay"}, "Hard cuts, kinetic beats, street-level tension."},
	{"period_70s", "Period 70s", []string{"1970s film", "warm tones", "zoom lens", "film grain", "practical lighting"}, "Zoom language, longer takes, character staging."},
	{"period_90s_indie", "90s Indie", []string{"1990s indie film", "muted palette", "handheld intimacy", "natural window light"}, "Lo-fi sincerity, intimate coverage."},
	{"hyperreal_clean", "Hyperreal Clean", []string{"ultra clean", "sharp detail", "stable camera", "modern commercial lighting", "minimal grain"}, "Precise compositions, premium polish."},
	{"surreal_symbolism", "Surreal Symbolism", []string{"surreal", "symbolic props", "unexpected scale", "dream logic", "metaphoric staging"}, "Metaphor-first transitions."},
	{"one_take_energy", "One-Take Energy", []string{"long take feel", "continuous camera", "blocking choreography", "fluid movement"}, "Each segment as a coherent mini-arc."},
	{"stop_motion_look", "Stop-Motion Look", []string{"stop motion aesthetic", "tactile texture", "miniature set feel", "slight frame jitter"}, "Tangible props; playful but precise continuity."},
	{"anime_cinematic", "Anime Cinematic", []string{"anime cinematic framing", "dramatic angles", "stylized lighting", "dynamic motion"}, "Bold compositions, emotional punch-ins."},
	{"western_dust", "Western Dust", []string{"western", "dusty air", "backlit sun", "wide landscapes", "gritty close-ups"}, "Wide establishing + intense close-ups."},
	{"horror_suspense", "Horror Suspense", []string{"low key lighting", "negative space", "uneasy framing", "fog", "subtle dread"}, "Unease via pacing and framing; payoff on peaks."},
	{"romcom_bright", "Romcom Bright", []string{"bright soft light", "warm highlights", "playful composition", "colorful props", "gentle contrast"}, "Readable emotions, charming beats."},
	{"music_doc_backstage", "Music Doc / Backstage", []string{"backstage", "available light", "close handheld", "authentic gear", "crowd energy"}, "Candid moments + inserts; quick coverage."},
	{"sci_fi_retro", "Retro Sci-Fi", []string{"retro sci-fi", "chrome", "analog controls", "practical neon", "fogged glass"}, "World-building via set detail; beats as system states."},
	{"art_nouveau_poetic", "Art Nouveau Poetic", []string{"art nouveau curves", "ornate ironwork", "stained glass glow", "poetic framing", "elegant motifs"}, "Repeating motifs; transitions echo rhythms."},
	{"minimalist_monochrome", "Minimalist Monochrome", []string{"minimalism", "monochrome", "negative space", "clean lines", "quiet composition"}, "Sparse storytelling; musically motivated cuts."},
	{"vaporwave_aesthetic", "Vaporwave Aesthetic", []string{"vaporwave", "pink purple gradients", "greek statues", "retro tech", "glitch effects", "palm trees"}, "Nostalgic irony, consumer culture visuals."},
	{"cyberpunk_2077", "Cyberpunk 2077", []string{"cyberpunk", "holographic ads", "rain-slicked streets", "neon kanji", "chrome implants", "dark future"}, "Tech noir, body modification themes."},
	{"studio_ghibli", "Studio Ghibli", []string{"studio ghibli style", "hand painted backgrounds", "soft watercolor", "whimsical nature", "magical realism"}, "Environmental storytelling, wonder."},
	{"wes_anderson", "Wes Anderson", []string{"symmetrical framing", "pastel palette", "vintage props", "whimsical staging", "centered composition"}, "Deadpan humor, meticulous mise-en-scene."},
	{"tarantino_grindhouse", "Tarantino Grindhouse", []string{"grindhouse", "film damage", "exploitation aesthetic", "bold typography", "retro violence"}, "Pulpy dialogue, chapter structure."},
	{"blade_runner", "Blade Runner", []string{"blade runner", "rain", "neon advertisements", "industrial fog", "noir future", "flying vehicles"}, "Existential themes, rain-soaked melancholy."},
	{"wong_kar_wai", "Wong Kar-Wai", []string{"step printing", "smeared motion", "saturated colors", "loneliness", "neon reflections", "romantic melancholy"}, "Time manipulation, unrequited love."},
	{"lynch_surreal", "David Lynch Surreal", []string{"surreal", "red curtains", "industrial hum", "uncanny valley", "dream nightmare", "slow dread"}, "Subconscious imagery, unsettling ordinary."},
	{"kubrick_symmetry", "Kubrick Symmetry", []string{"one point perspective", "symmetrical", "cold precision", "clinical lighting", "unsettling stillness"}, "Geometric perfection, human fragility."},
	{"instagram_lifestyle", "Instagram Lifestyle", []string{"lifestyle photography", "golden hour", "soft bokeh", "aspirational", "clean minimal", "influencer aesthetic"}, "Aspirational beauty, product integration."},
	{"90s_mtv", "90s MTV", []string{"90s mtv", "quick cuts", "dutch angles", "fish eye lens", "grunge aesthetic", "video effects"}, "Energetic editing, youth rebellion."},
	{"polaroid_nostalgia", "Polaroid Nostalgia", []string{"polaroid", "instant film", "light leaks", "vintage colors", "snapshot aesthetic", "authentic moments"}, "Intimate memories, imperfect beauty."},
	{"fashion_editorial", "Fashion Editorial", []string{"high fashion", "editorial lighting", "stark backgrounds", "dramatic poses", "vogue aesthetic", "model photography"}, "Striking poses, visual impact."},
	{"music_video_glam", "Music Video Glam", []string{"music video", "lens flares", "smoke machines", "dramatic lighting", "performance shots", "glamorous"}, "Star power, visual spectacle."},
	{"pixel_art_retro", "Pixel Art Retro", []string{"pixel art", "8-bit aesthetic", "retro gaming", "limited palette", "chunky pixels", "nostalgic"}, "Gaming nostalgia, simplified forms."},
	{"comic_book_pop", "Comic Book Pop", []string{"comic book style", "bold outlines", "halftone dots", "speech bubbles", "pop art colors", "dynamic panels"}, "Sequential energy, graphic impact."},
	{"renaissance_painting", "Renaissance Painting", []string{"renaissance", "chiaroscuro", "oil painting", "classical composition", "religious light", "old masters"}, "Timeless beauty, dramatic lighting."},
	{"soviet_propaganda", "Soviet Constructivism", []string{"constructivism", "red and black", "bold geometry", "propaganda poster", "worker imagery", "revolutionary"}, "Bold graphics, ideological power."},
	{"japanese_woodblock", "Japanese Woodblock", []string{"ukiyo-e", "woodblock print", "flat perspective", "nature scenes", "edo period", "stylized waves"}, "Elegant simplicity, natural beauty."},
	{"miami_vice", "Miami Vice", []string{"miami vice", "pastel suits", "sunset colors", "palm trees", "speedboats", "80s glamour", "tropical noir"}, "Sun-soaked crime, style over substance."},
	{"noir_classic", "Noir Classic", []string{"1940s film noir", "fedora hats", "trench coats", "venetian blinds", "cigarette smoke", "rain-slicked streets", "black and white", "hard boiled detective"}, "Classic detective genre, moral ambiguity, femme fatale."},
	{"noir_neo", "Neo Noir", []string{"neo noir", "modern noir", "neon and shadow", "urban nightscape", "contemporary crime", "stylized violence", "no hats", "no trenchcoats", "sleek modern"}, "Modern crime drama aesthetics, stylish but grounded."},
	{"glitch_art", "Glitch Art", []string{"glitch art", "data corruption", "pixel sorting", "RGB split", "digital artifacts", "scan lines", "VHS damage", "broken signal"}, "Digital decay, technological anxiety, broken beauty."},
	{"lo_fi_bedroom", "Lo-Fi Bedroom", []string{"lo-fi aesthetic", "warm lamp light", "cozy bedroom", "soft textures", "vintage electronics", "plants", "warm grain", "intimate space"}, "Intimate, comfortable, nostalgic warmth."},
	{"brutalist_concrete", "Brutalist Concrete", []string{"brutalist architecture", "raw concrete", "geometric shadows", "monumental scale", "cold modernism", "stark angles", "urban fortress"}, "Imposing structures, human vs architecture tension."},
	{"acid_trip", "Acid Trip", []string{"psychedelic", "kaleidoscopic patterns", "color distortion", "melting reality", "fractal geometry", "saturated hues", "visual hallucination"}, "Reality bending, sensory overload, altered states."},
	{"french_new_wave", "French New Wave", []string{"nouvelle vague", "jump cuts", "natural light", "parisian streets", "handheld camera", "intellectual cool", "cigarette aesthetic", "black and white option"}, "Rule-breaking editing, philosophical undertones, effortless style."},
	{"afrofuturism", "Afrofuturism", []string{"afrofuturism", "african patterns", "futuristic technology", "cosmic imagery", "gold accents", "ancestral future", "wakanda aesthetic"}, "Heritage meets tomorrow, empowered futures, cultural pride."},
	{"silent_film_era", "Silent Film Era", []string{"silent film", "sepia tone", "iris shots", "intertitles", "theatrical acting", "vintage vignette", "1920s aesthetic", "expressionist shadows"}, "Exaggerated emotion, visual storytelling, nostalgic charm."},
	{"muppet_show", "Muppet Show", []string{"jim henson muppets", "felt puppet", "googly eyes", "fabric texture", "theatrical stage", "warm lighting", "expressive puppet faces", "handcrafted aesthetic"}, "Warm comedy, vaudeville energy, breaking fourth wall."},
	{"claymation", "Claymation", []string{"claymation", "stop motion clay", "plasticine texture", "aardman style", "fingerprint details", "smooth animation", "tactile characters", "handmade charm"}, "Tactile humor, physical comedy, Wallace and Gromit vibes."},
	{"thunderbirds", "Thunderbirds", []string{"supermarionation", "1960s puppet", "marionette strings visible", "retro futurism", "practical miniatures", "wooden movement", "tracy island aesthetic"}, "Retro sci-fi heroics, dramatic rescues, stiff-upper-lip."},
	{"spitting_image", "Spitting Image", []string{"latex puppet", "caricature", "satirical puppet", "grotesque features", "exaggerated expressions", "political satire", "rubber mask aesthetic"}, "Sharp satire, exaggerated features, biting commentary."},
	{"team_america", "Team America", []string{"team america puppets", "action movie parody", "marionette action", "miniature explosions", "puppet violence", "satirical patriotism", "string puppets"}, "Action parody, irreverent humor, puppet chaos."},
}

var byKey = func() map[string]*Preset {
	m := make(map[string]*Preset, len(presets))
	for i := range presets {
		m[presets[i].Key] = &presets[i]
	}
	return m
}()

// Find resolves a preset by key, then by case-insensitive label. Unknown
// styles degrade to a single-token preset so user-typed styles still work.
func Find(key string) Preset {
	if p, ok := byKey[key]; ok {
		return *p
	}
	lower := strings.ToLower(strings.TrimSpace(key))
	for i := range presets {
		if strings.ToLower(presets[i].Label) == lower {
			return presets[i]
		}
	}
	return Preset{Key: key, Label: key, Tokens: []string{key}}
}

func Tokens(key string) []string {
	return Find(key).Tokens
}

func ScriptNotes(key string) string {
	return Find(key).ScriptNotes
}

func Label(key string) string {
	return Find(key).Label
}

func List() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}
