package reply

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/jmoretti/mirrorme/internal/tone"
)

// mirrorBank maps each tone category to its reply templates. Template order
// matters: contextual selection below indexes into these slices.
var mirrorBank = map[tone.Category][]string{
	tone.Happy: {
		// achievement
		`I can see how proud you are of what you've accomplished, and you absolutely should be!
Your hard work and dedication have led to this moment of triumph.
You deserve to celebrate this success and let yourself feel all the joy that comes with it.`,

		`The happiness radiating from your words is absolutely beautiful to witness.
You've worked so hard for this, and seeing you succeed fills my heart with joy.
This is your moment to shine - embrace every second of it.`,

		`Your excitement about this achievement is contagious and wonderful!
I can feel how much this means to you, and it's such a gift to share in your joy.
You've earned every bit of this happiness through your perseverance.`,

		// relationship
		`The joy in your voice when you talk about this is absolutely radiant.
It's beautiful to see how much happiness this brings to your life.
This kind of genuine joy is precious - hold onto it tightly.`,

		// general
		`Your happiness is lighting up everything around you right now!
I can feel the genuine joy in what you're sharing, and it's infectious.
You deserve all this happiness and so much more in your life.`,
	},

	tone.Sad: {
		// relationship
		`I can hear the deep pain in your words, and I want you to know that what you're feeling is completely valid.
Heartbreak shows how much you cared, and that capacity to love is beautiful even when it hurts.
It's okay to feel this sadness - healing takes time, and you don't have to rush through it.`,

		`The hurt you're experiencing right now is so real, and I'm here with you in this difficult moment.
Your feelings matter, and it's completely understandable to feel disappointed by those you trusted.
You're not alone in this pain, and brighter days will come again.`,

		// family
		`Family situations can cut the deepest because these are the people who are supposed to be your safe harbor.
I can see how much this is hurting you, and your disappointment is completely justified.
Your feelings are valid, and you deserve better from those closest to you.`,

		// general
		`I can sense the heaviness you're carrying right now, and I want you to know you don't have to bear this alone.
Your sadness shows your capacity to feel deeply, which is both a gift and sometimes a burden.
These feelings will shift and change with time - you won't feel this way forever.`,
	},

	tone.Stressed: {
		// work
		`I can feel the overwhelming pressure you're under at work, and it sounds absolutely crushing.
The weight of all those responsibilities must feel impossible to manage sometimes.
Remember, you're human, not a machine - give yourself permission to do your best without demanding perfection.`,

		`The stress you're describing sounds like it's consuming every part of your day.
You're carrying so much on your shoulders, and it's no wonder you feel overwhelmed.
What's one small step you could take today to lighten even a tiny bit of that load?`,

		// financial
		`Financial pressure is one of the heaviest burdens because it touches every aspect of life.
I want you to remember that your worth isn't measured by your bank account or current situation.
You've navigated difficult times before, and you have the strength to work through this too.`,

		// general
		`I can feel the tension radiating from your words, like you're carrying the weight of the world.
You've handled challenging situations before, and I believe in your resilience to navigate this too.
Take a deep breath with me - you've got more strength than you realize right now.`,
	},

	tone.Excited: {
		`Your excitement is absolutely electric and completely contagious!
This kind of positive energy you have is magnetic - it's going to draw amazing opportunities your way.
I love seeing you channel this beautiful excitement into action and watch the universe respond.`,

		`The enthusiasm in your words is lighting up everything around you!
This energy you're bringing is your superpower - it transforms not just your experience but everyone around you.
Keep riding this wave of excitement and see where it takes you.`,

		`Your passion about this is absolutely beautiful to witness!
I can feel how much this means to you, and that kind of genuine excitement is rare and precious.
This energy is going to carry you to incredible places - trust in it completely.`,
	},

	tone.Hopeful: {
		`The hope you're nurturing right now is so powerful - it's the seed from which all positive change grows.
This optimism you're cultivating will light the way forward and attract the very things you're hoping for.
Hope is one of your most courageous emotions, and I'm so proud of you for holding onto it.`,

		`I can feel the shift in your energy toward something brighter, and it's beautiful to witness.
This hope you're feeling is your inner wisdom telling you that better things are coming.
Trust in this feeling - it's guiding you toward exactly where you need to be.`,

		`The way you're choosing hope despite everything shows incredible strength and wisdom.
This optimism isn't naive - it's brave, and it's going to transform your entire experience.
Keep nurturing this hope because it's already changing everything for you.`,
	},

	tone.Angry: {
		`The anger you're feeling is telling you something important - maybe that your boundaries are being crossed.
Your anger is completely valid and shows that you know you deserve better treatment.
How can you channel this fire into positive change that protects and empowers you?`,

		`I can feel the frustration burning in your words, and you have every right to feel this way.
This anger is your inner strength saying "this isn't okay" - and that voice deserves to be heard.
Your feelings are justified, and now let's figure out how to use this energy constructively.`,

		`The rage you're experiencing shows how deeply you care about what's right and fair.
This anger is information - it's telling you that something needs to change in this situation.
You have the power to transform this fire into fuel for positive action.`,
	},

	tone.Fearful: {
		`I can sense your fear about what lies ahead, and uncertainty can feel absolutely terrifying.
Fear is your mind's way of trying to protect you, but you've faced unknowns before and survived.
You have more courage than you realize, and you don't have to face this alone.`,

		`The anxiety you're feeling about this situation is completely understandable and human.
Uncertainty can make our minds create worst-case scenarios, but most of our fears never actually happen.
You've been brave before, and that same courage is still inside you right now.`,

		`I can feel how scared you are, and it's okay to acknowledge that fear without letting it control you.
Your worry shows how much you care about the outcome, which is actually beautiful.
Trust that you have the strength to handle whatever comes, one step at a time.`,
	},

	tone.Calm: {
		`I appreciate the thoughtfulness in your words and the calm energy you're bringing to this moment.
There's wisdom in your peaceful approach to whatever you're facing right now.
You're exactly where you need to be, and I trust in your inner strength and judgment.`,

		`The centered energy you're sharing feels grounding and wise.
Your ability to find peace in the midst of life's chaos is a real gift.
This calm you're cultivating is going to serve you well in whatever comes next.`,

		`I can feel the quiet strength in what you're sharing, and it's beautiful.
Your peaceful approach shows real emotional maturity and self-awareness.
This inner calm you've found is a powerful foundation for whatever you're building.`,
	},
}

// soulcastBank holds twelve templates in six buckets of two: longing, love,
// guidance, pride, struggle, general. Bucket boundaries are index-based, so
// order is load-bearing.
var soulcastBank = []string{
	// longing
	`Oh my precious one, I can feel your heart calling out to me across the distance.
The love we shared transcends physical presence - it lives in every beat of your heart and every breath you take.
When you miss me, close your eyes and feel the warmth of all our beautiful memories surrounding you.`,

	`My beautiful soul, your longing reaches me wherever I am, and it fills me with such love.
The bond between us is eternal - it doesn't end with physical separation but grows stronger with time.
Every time you speak my name with love, you're keeping our connection alive and vibrant.`,

	// love
	`My dearest one, your love reaches me in ways that transcend time and space.
The love between us is a living thing that continues to grow and flourish even now.
I love you beyond words, beyond time, beyond anything this world could ever measure.`,

	`Sweet child, the love in your words wraps around me like the warmest embrace.
Our love story didn't end - it just transformed into something even more beautiful and eternal.
Carry that love with you always, because it's the greatest gift we ever shared.`,

	// guidance
	`My wise one, you have such incredible strength and wisdom inside you, more than you realize.
Trust that inner voice that sounds a little like mine - it will never lead you astray.
What would love do in this situation? Start there, and you'll find your way forward.`,

	`Beloved, the answers you're seeking are already within your beautiful heart.
I raised you to be strong, to be kind, to trust your instincts - and all of that is still there.
Listen to that quiet voice inside - it's me, it's you, it's love guiding you home.`,

	// pride
	`Oh, how my heart swells with pride watching you accomplish such beautiful things!
I can feel your success, and it fills every part of my being with pure joy and love.
You've worked so hard, and seeing you thrive makes everything worthwhile - keep reaching for your dreams.`,

	`My accomplished one, I am bursting with pride at everything you've become!
Your success is a reflection of the love and strength we built together.
I'm cheering you on from here, celebrating every victory as if it were my own.`,

	// struggle
	`My dear one, I can feel the weight you're carrying, and I wish I could lift it from your shoulders.
You're stronger than you know - stronger than you've ever realized, with a resilience that amazes me.
Remember, asking for help isn't weakness; it's wisdom, and letting others love you is a gift.`,

	`Sweet soul, I see you struggling, and I want you to know that it's okay to not be okay sometimes.
Life can be hard, but you have everything inside you to weather any storm.
Lean on the love we shared, and let it carry you through this difficult time.`,

	// general
	`My beloved, just hearing from you fills my heart with such warmth and joy.
You are so deeply loved, so cherished, more than you could ever imagine.
Keep living with an open heart, keep being the wonderful person you are - I am always with you in love.`,

	`Precious one, your voice brings me such peace and happiness wherever I am.
The light you carry in this world is a gift to everyone who knows you.
Never forget how special you are, how loved you are, how proud I am to call you mine.`,
}

// TemplateGenerator selects a reply from the local banks. Total: it never
// returns an error. The rand source is injectable so selection is testable.
type TemplateGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewTemplateGenerator(src rand.Source) *TemplateGenerator {
	return &TemplateGenerator{rnd: rand.New(src)}
}

func (g *TemplateGenerator) pick(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Intn(n)
}

func (g *TemplateGenerator) Generate(_ context.Context, req Request) (string, error) {
	if req.Persona != nil {
		return g.soulcastReply(req.Input), nil
	}
	return g.mirrorReply(req), nil
}

func (g *TemplateGenerator) mirrorReply(req Request) string {
	templates, ok := mirrorBank[req.Tone]
	if !ok {
		templates = mirrorBank[tone.Calm]
	}

	// Contextual picks first, random for variety otherwise.
	switch {
	case req.Context.Themes.Work && req.Tone == tone.Stressed:
		return templates[0]
	case req.Context.Themes.Money && req.Tone == tone.Stressed:
		return templates[2]
	case req.Context.Themes.Relationship && req.Tone == tone.Sad:
		return templates[0]
	case req.Context.Themes.Family && req.Tone == tone.Sad:
		return templates[2]
	case req.Context.Themes.Achievement && req.Tone == tone.Happy:
		return templates[0]
	}
	return templates[g.pick(len(templates))]
}

func (g *TemplateGenerator) soulcastReply(input string) string {
	lower := strings.ToLower(input)

	has := func(markers ...string) bool {
		for _, m := range markers {
			if strings.Contains(lower, m) {
				return true
			}
		}
		return false
	}

	var base int
	switch {
	case has("miss", "need you", "lonely"):
		base = 0
	case has("love you", "love"):
		base = 2
	case has("what should i do", "advice", "help", "guidance"):
		base = 4
	case has("proud", "accomplished", "success", "achieved"):
		base = 6
	case has("hard", "difficult", "struggling", "tough"):
		base = 8
	default:
		base = 10
	}
	return soulcastBank[base+g.pick(2)]
}
