package catalog

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/promptmarket/gallery/internal/models"
)

// DefaultSeedCount is the number of themed items in the built-in catalog
const DefaultSeedCount = 500

var DefaultCategories = []models.Category{
	{ID: AllCategory, Name: "All"},
	{ID: models.PersonaCategory, Name: "AI Personas"},
	{ID: "cyberpunk", Name: "Cyberpunk"},
	{ID: "nature", Name: "Nature"},
	{ID: "portrait", Name: "Portrait"},
	{ID: "abstract", Name: "Abstract"},
	{ID: "fantasy", Name: "Fantasy"},
	{ID: "scifi", Name: "Sci-Fi"},
	{ID: "3d", Name: "3D Render"},
	{ID: "anime", Name: "Anime"},
	{ID: "architecture", Name: "Architecture"},
}

// PremadeCharacters are always available; the first three are free
var PremadeCharacters = []models.Character{
	{
		ID:          "char_1",
		Name:        "Elara",
		Description: "a stunning 22 year old scandinavian woman, platinum blonde messy bun hair, piercing blue eyes, freckles, minimal makeup, model facial structure, wearing casual chic outfit",
		AvatarURL:   "https://image.pollinations.ai/prompt/portrait%20of%20stunning%2022yo%20scandinavian%20woman%20platinum%20blonde?width=200&height=200&nologo=true&seed=101",
	},
	{
		ID:          "char_3",
		Name:        "Zara",
		Description: "a beautiful 24 year old afro-latina woman, curly voluminous hair, golden skin tone, warm smile, stylish urban fashion, golden hour lighting",
		AvatarURL:   "https://image.pollinations.ai/prompt/portrait%20of%20beautiful%2024yo%20afro-latina%20woman%20curly%20hair?width=200&height=200&nologo=true&seed=103",
	},
	{
		ID:          "char_8",
		Name:        "Leo",
		Description: "a charming 26 year old french man, curly brown hair, blue eyes, wearing a beige trench coat, artistic vibe, soft lighting",
		AvatarURL:   "https://image.pollinations.ai/prompt/portrait%20of%20charming%2026yo%20french%20man%20curly%20hair?width=200&height=200&nologo=true&seed=108",
	},
	{
		ID:          "char_jax",
		Name:        "Jax",
		Description: "a muscular 28 year old man, full sleeve tattoos on both arms, wearing a tight black tank top, undercut hairstyle, rugged beard, intense look, fitness model aesthetic",
		AvatarURL:   "https://image.pollinations.ai/prompt/portrait%20of%20muscular%20man%20tattoos%20black%20tank%20top%20beard?width=200&height=200&nologo=true&seed=901",
		IsPremium:   true,
	},
	{
		ID:          "char_minho",
		Name:        "Min-ho",
		Description: "a stylish 23 year old korean man, k-pop idol aesthetic, flawless skin, trendy parted hair, silver earrings, wearing high-end fashion streetwear, neon city background vibe",
		AvatarURL:   "https://image.pollinations.ai/prompt/portrait%20of%20handsome%20korean%20man%20kpop%20style%20neon?width=200&height=200&nologo=true&seed=902",
		IsPremium:   true,
	},
	{
		ID:          "char_viktor",
		Name:        "Viktor",
		Description: "a sophisticated 35 year old man, salt and pepper hair and beard, wearing a tailored italian suit, confident smirk, luxury lifestyle, blue eyes",
		AvatarURL:   "https://image.pollinations.ai/prompt/portrait%20of%20sophisticated%20man%20suit%20beard%20luxury?width=200&height=200&nologo=true&seed=903",
		IsPremium:   true,
	},
	{
		ID:          "char_7",
		Name:        "Nova",
		Description: "a futuristic cyborg woman, half human face half metallic, glowing neon blue eyes, synthetic skin, cyberpunk aesthetic",
		AvatarURL:   "https://image.pollinations.ai/prompt/portrait%20of%20futuristic%20cyborg%20woman%20neon?width=200&height=200&nologo=true&seed=107",
		IsPremium:   true,
	},
	{
		ID:          "char_5",
		Name:        "Luna",
		Description: "an edgy 20 year old e-girl, dyed purple hair with bangs, winged eyeliner, choker necklace, pale skin, alternative fashion style",
		AvatarURL:   "https://image.pollinations.ai/prompt/portrait%20of%20edgy%2020yo%20e-girl%20purple%20hair?width=200&height=200&nologo=true&seed=105",
		IsPremium:   true,
	},
	{
		ID:          "char_2",
		Name:        "Kenji",
		Description: "a handsome 25 year old japanese man, sharp jawline, messy dark hair, streetwear fashion, calm expression, cinematic lighting",
		AvatarURL:   "https://image.pollinations.ai/prompt/portrait%20of%20handsome%2025yo%20japanese%20man%20streetwear?width=200&height=200&nologo=true&seed=102",
		IsPremium:   true,
	},
}

// theme is the vocabulary a category's prompts are assembled from
type theme struct {
	subjects     []string
	actions      []string
	environments []string
	styles       []string
	lighting     []string
}

// themeOrder fixes the round-robin order of categories in the seeded catalog
var themeOrder = []string{"cyberpunk", "nature", "portrait", "abstract", "fantasy", "scifi", "3d", "anime", "architecture"}

var themes = map[string]theme{
	"cyberpunk": {
		subjects:     []string{"Elon Musk", "Keanu Reeves", "Iron Man", "Alita Battle Angel", "Daft Punk", "The Terminator", "Black Widow", "Deadpool"},
		actions:      []string{"hacking a neural network", "riding a futuristic light cycle", "holding a glowing katana", "wearing augmented reality glasses", "fixing a robotic arm"},
		environments: []string{"in a rainy neon Tokyo street", "inside a high-tech server room", "on top of a mega-corporation tower", "in a holographic underground club", "flying through a digital highway"},
		styles:       []string{"Cyberpunk 2077 Style", "Blade Runner Aesthetic", "Synthwave Neon", "Futuristic Realism", "High-Tech Chrome"},
		lighting:     []string{"neon pink and blue side lighting", "volumetric fog with lasers", "holographic projection glow", "wet street reflections"},
	},
	"nature": {
		subjects:     []string{"Baby Yoda (Grogu)", "Avatar Na'vi Character", "Godzilla", "Totoro", "The Lion King", "Pikachu", "Groot"},
		actions:      []string{"meditating in peace", "roaring at the sky", "sleeping on a giant leaf", "controlling the elements", "glowing with bioluminescence"},
		environments: []string{"in the Pandora glowing forest", "under a massive waterfall", "on a floating mountain", "in a mystical ancient grove", "surrounded by fireflies"},
		styles:       []string{"National Geographic Cinematic", "Unreal Engine 5 Nature", "Hyperrealistic 8k", "Macro Fantasy Photography", "Ethereal Dreamscape"},
		lighting:     []string{"golden hour sun rays", "bioluminescent night glow", "dramatic storm lighting", "god rays through trees"},
	},
	"portrait": {
		subjects:     []string{"Taylor Swift", "Joker", "Oppenheimer", "Barbie", "Albert Einstein", "Frida Kahlo", "Marilyn Monroe", "Walter White", "Wednesday Addams"},
		actions:      []string{"staring intensely at camera", "laughing manically", "adjusting glasses", "wearing haute couture", "holding a vintage camera"},
		environments: []string{"with a cinematic blurred city background", "in a dramatic studio setting", "surrounded by math formulas", "on a red carpet", "in a dark moody room"},
		styles:       []string{"Cinematic Portrait", "Vogue Editorial", "Dramatic Noir", "Double Exposure", "Oil Painting Style"},
		lighting:     []string{"Rembrandt lighting", "dramatic rim light", "studio softbox", "cinematic teal and orange", "moody shadows"},
	},
	"abstract": {
		subjects:     []string{"Bitcoin Logo", "Artificial Intelligence Brain", "The Matrix Code", "DNA Helix of a Superhero", "Time Travel Portal", "Quantum Computer"},
		actions:      []string{"exploding into data", "melting into liquid gold", "fracturing into crystals", "glowing with energy", "spinning infinitely"},
		environments: []string{"in a zero-gravity void", "inside a microchip", "floating in the multiverse", "on a digital canvas"},
		styles:       []string{"Abstract Expressionism", "3D Fractal Art", "Fluid Simulation", "Glassmorphism", "Psychedelic Pop Art"},
		lighting:     []string{"vibrant neon gradients", "internal glowing core", "stark contrasting shadows", "ethereal light beams"},
	},
	"fantasy": {
		subjects:     []string{"Daenerys Targaryen", "Geralt of Rivia (The Witcher)", "Gandalf", "Link (Zelda)", "Maleficent", "Thor", "Wonder Woman", "Kratos"},
		actions:      []string{"summoning a dragon", "casting a fireball", "wielding a magical sword", "sitting on a throne", "opening a portal"},
		environments: []string{"at the gates of Hogwarts", "in a crystal cave", "on a volcanic mountain", "in an enchanted elven forest", "under a red moon"},
		styles:       []string{"Dark Fantasy RPG", "Epic High Fantasy Painting", "Magic The Gathering Art", "Elden Ring Style", "Cinematic Concept Art"},
		lighting:     []string{"magical spell glow", "torch light in darkness", "mystical moonlight", "fiery ambient light"},
	},
	"scifi": {
		subjects:     []string{"Darth Vader", "The Mandalorian", "Master Chief (Halo)", "Buzz Lightyear", "Wall-E", "Optimus Prime", "Thanos"},
		actions:      []string{"wielding a lightsaber", "flying with a jetpack", "scanning an alien artifact", "commanding a starship", "looking at a supernova"},
		environments: []string{"on the surface of Mars", "inside the Death Star", "drifting near a black hole", "in a cyberpunk spaceship cockpit", "on a Dyson Sphere"},
		styles:       []string{"Star Wars Cinematic", "Interstellar Movie Style", "NASA Concept Art", "Retro Futurism", "Mass Effect Aesthetic"},
		lighting:     []string{"cold LED blue lights", "lens flares", "dramatic red alert lighting", "starlight reflections"},
	},
	"3d": {
		subjects:     []string{"Super Mario", "Minion", "Lego Batman", "Among Us Character", "SpongeBob", "Fall Guys Character", "Cute Astronaut"},
		actions:      []string{"jumping for joy", "eating a burger", "running fast", "floating in zero g", "dancing"},
		environments: []string{"in a colorful plastic world", "on a isometric floating island", "inside a toy box", "on a candy planet"},
		styles:       []string{"Pixar Animation Style", "Claymation", "Low Poly Isometric", "Funko Pop Style", "Blender 3D Cute"},
		lighting:     []string{"bright studio lighting", "soft ambient occlusion", "warm cheerful sun", "glossy reflections"},
	},
	"anime": {
		subjects:     []string{"Naruto Uzumaki", "Goku", "Sailor Moon", "Gojo Satoru", "Luffy (One Piece)", "Totoro", "Pikachu", "Hatsune Miku"},
		actions:      []string{"powering up energy", "eating ramen", "casting a jutsu", "transforming", "standing in the rain"},
		environments: []string{"in a cherry blossom school yard", "in Neo-Tokyo", "on a pirate ship", "in a martial arts dojo", "under a starry anime sky"},
		styles:       []string{"Studio Ghibli Style", "Makoto Shinkai Detailed", "90s Retro Anime", "Ufotable High Quality", "Manga Lineart"},
		lighting:     []string{"dramatic sun rays", "sunset glow", "magical aura effect", "vibrant anime colors"},
	},
	"architecture": {
		subjects:     []string{"Hogwarts Castle", "Stark Tower (Avengers)", "Barbie Dreamhouse", "Hobbit Hole", "Futuristic Apple Store", "Cyberpunk Skyscraper"},
		actions:      []string{"glowing at night", "floating in the sky", "covered in vines", "under construction by robots"},
		environments: []string{"on a cliff edge", "in the middle of the ocean", "in a futuristic utopia", "in a snowy landscape"},
		styles:       []string{"Zaha Hadid Futuristic", "Gothic Revival", "Minimalist Concrete", "Steampunk Architecture", "Sustainable Green Design"},
		lighting:     []string{"interior warm glow", "architectural exterior lights", "blue hour dusk", "golden sunrise"},
	},
}

// PersonaCards turns every premade character into a catalog card
func PersonaCards() []models.CatalogItem {
	cards := make([]models.CatalogItem, 0, len(PremadeCharacters))
	for _, c := range PremadeCharacters {
		cards = append(cards, models.CatalogItem{
			ID:           "card_" + c.ID,
			Title:        c.Name,
			Template:     c.Description + ", {subject}, 8k, highly detailed, photorealistic, masterpiece",
			IsPremium:    c.IsPremium,
			BaseImageURL: c.AvatarURL,
			Category:     models.PersonaCategory,
			AspectRatio:  models.AspectPortrait,
			CharacterID:  c.ID,
		})
	}
	return cards
}

// Seed builds the built-in catalog: the persona cards followed by count
// themed items. The same seed always yields the same catalog, so item ids
// keep matching persisted images across restarts.
func Seed(count int, seed uint64) []models.CatalogItem {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pick := func(options []string) string {
		return options[rng.IntN(len(options))]
	}

	items := PersonaCards()
	for i := range count {
		category := themeOrder[i%len(themeOrder)]
		t := themes[category]

		subject := pick(t.subjects)
		action := pick(t.actions)
		env := pick(t.environments)
		style := pick(t.styles)
		light := pick(t.lighting)

		var ratio models.AspectRatio
		switch category {
		case "portrait":
			ratio = models.AspectPortrait
		case "architecture", "nature":
			ratio = models.AspectLandscape
		default:
			if rng.Float64() > 0.5 {
				ratio = models.AspectSquare
			} else {
				ratio = models.AspectPortrait
			}
		}

		stylePrefix, _, _ := strings.Cut(style, " ")
		items = append(items, models.CatalogItem{
			ID:           fmt.Sprint(i + 1),
			Title:        stylePrefix + " " + subject,
			Template:     fmt.Sprintf("%s of {subject} %s %s, %s, highly detailed, 8k masterpiece, trending on artstation", style, action, env, light),
			IsPremium:    i%3 == 0,
			BaseImageURL: placeholderURL(style+" "+subject+" "+action, ratio, i+5000),
			Category:     category,
			AspectRatio:  ratio,
		})
	}
	return items
}

func placeholderURL(prompt string, ratio models.AspectRatio, seed int) string {
	height := 300
	switch ratio {
	case models.AspectPortrait:
		height = 450
	case models.AspectLandscape:
		height = 170
	}
	return fmt.Sprintf("https://image.pollinations.ai/prompt/%s?width=300&height=%d&nologo=true&seed=%d", url.PathEscape(prompt), height, seed)
}
