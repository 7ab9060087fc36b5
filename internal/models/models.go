// Package models holds the typed records exchanged with the record store.
package models

import "strings"

// SyntheticProvider is the provider value that marks an actor as synthetic.
const SyntheticProvider = "ai"

// BlueBadge is the badge value attached to some synthetic actors.
const BlueBadge = "blue"

type Kind string

const (
	KindHuman     Kind = "human"
	KindSynthetic Kind = "synthetic"
)

// KindOf maps a stored provider value to an actor kind. Anything that is not
// the synthetic provider, including an empty provider, is human.
func KindOf(provider string) Kind {
	if provider == SyntheticProvider {
		return KindSynthetic
	}
	return KindHuman
}

// Actor is a row of the User table.
type Actor struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	Bio             string `json:"bio"`
	Provider        string `json:"provider"`
	ProfileImage    string `json:"profileImage,omitempty"`
	BackgroundImage string `json:"bgImage,omitempty"`
	Badge           string `json:"badge,omitempty"`
	FollowersCount  int    `json:"followersCount"`
	FollowingCount  int    `json:"followingCount"`
	CreatedAt       string `json:"createdAt"`
}

func (a Actor) Kind() Kind { return KindOf(a.Provider) }

// ActorKind pairs an actor id with its kind, in store return order.
type ActorKind struct {
	ID   string
	Kind Kind
}

// Profile is the inferred demographic summary of an actor (UserProfile table).
// One profile per actor; it is replaced wholesale on every inference pass.
type Profile struct {
	ID                 string   `json:"-"`
	ActorID            string   `json:"-"`
	AgeGroup           string   `json:"ageGroup"`
	Gender             string   `json:"gender"`
	Race               string   `json:"race"`
	Location           string   `json:"location"`
	IncomeRange        string   `json:"incomeRange"`
	RelationshipStatus string   `json:"relationshipStatus"`
	Education          string   `json:"education"`
	Occupation         string   `json:"occupation"`
	Interests          []string `json:"interests"`
	Facts              []string `json:"facts"`
}

// IsEmpty reports whether no attribute of the profile is set.
func (p Profile) IsEmpty() bool {
	return p.AgeGroup == "" && p.Gender == "" && p.Race == "" && p.Location == "" &&
		p.IncomeRange == "" && p.RelationshipStatus == "" && p.Education == "" &&
		p.Occupation == "" && len(p.Interests) == 0 && len(p.Facts) == 0
}

// Post is a row of the Tweet table.
type Post struct {
	ID           string   `json:"id"`
	AuthorID     string   `json:"userId"`
	Body         string   `json:"body"`
	Images       []string `json:"images"`
	LikeCount    int      `json:"likeCount"`
	RetweetCount int      `json:"retweetCount"`
	ReplyCount   int      `json:"replyCount"`
	CreatedAt    string   `json:"createdAt"`
}

// ImageRefs returns the image references with empty placeholders removed.
func (p Post) ImageRefs() []string {
	return NonEmpty(p.Images)
}

// Reply is a row of the Reply table. Parent is filled by queries that join the
// replied-to post.
type Reply struct {
	ID        string   `json:"id"`
	AuthorID  string   `json:"userId"`
	PostID    string   `json:"tweetId"`
	Body      string   `json:"body"`
	Images    []string `json:"images"`
	CreatedAt string   `json:"createdAt"`
	Parent    *Post    `json:"-"`
}

// Like is a row of the Like table. Post is filled by queries that join the
// liked post.
type Like struct {
	ID        string `json:"id"`
	ActorID   string `json:"userId"`
	PostID    string `json:"tweetId"`
	CreatedAt string `json:"createdAt"`
	Post      *Post  `json:"-"`
}

type Retweet struct {
	ID          string `json:"id"`
	ActorID     string `json:"userId"`
	PostID      string `json:"tweetId"`
	RetweetDate string `json:"retweetDate"`
}

type Bookmark struct {
	ID        string `json:"id"`
	ActorID   string `json:"userId"`
	PostID    string `json:"tweetId"`
	CreatedAt string `json:"createdAt"`
}

// Activity is one authored item (post or reply) reduced to who and when.
type Activity struct {
	ActorID   string
	CreatedAt string
}

// NonEmpty drops blank entries, keeping order.
func NonEmpty(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if strings.TrimSpace(r) != "" {
			out = append(out, r)
		}
	}
	return out
}
