package prompts

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Set holds every prompt template. Placeholders use {name} and are filled by
// Fill.
type Set struct {
	ProfileSystem   string `yaml:"profile_system"`
	ProfileUser     string `yaml:"profile_user"`
	SeedSystem      string `yaml:"seed_system"`
	SeedUser        string `yaml:"seed_user"`
	ContentSystem   string `yaml:"content_system"`
	ContentBody     string `yaml:"content_body"`
	ContentTopic    string `yaml:"content_topic"`
	ContentStyle    string `yaml:"content_style"`
	ReplyTopic      string `yaml:"reply_topic"`
	ReplyImages     string `yaml:"reply_images"`
	ReplyAlignment  string `yaml:"reply_alignment"`
	ProfileImage    string `yaml:"profile_image"`
	BackgroundImage string `yaml:"background_image"`
}

func Default() Set {
	return Set{
		ProfileSystem: "Generate a detailed user profile based on the following information. Make your best estimates using the information you currently have for each category.\n" +
			"Feel free to use ranges or lists of values if you believe that with the information you were given, that is the most accurate you may reasonably be.\n" +
			"However, if you are unsure of something or don't have enough information to make a reasonable guess, you may leave that option blank. If you're unsure, it is better to take a very tentative and general guess than leave one blank, so only leave it blank if you have zero information regarding said category. " +
			"If given a nonempty previous profile, prioritize those results over the tweet, reply, user, and like results, and only outweigh the previous profile if it directly contradicts it.",
		ProfileUser: "Using the following information, ordered in priority from high to low priority, generate a user profile:\n{evidence}",
		SeedSystem: "Generate a basic description of a random user of a social media site. For example, you could have a person named 'John Doe' with username 'jdoe99' and a bio 'I like video games and selling them to people', or 'Jane Smith' with username 'jsmithhh' and a bio 'Still waiting for JB's next album...' for users who will post ads and post music content respectively. " +
			"Similarly, generate exactly {n} such basic user descriptions and return them as a list. Feel free to be creative and random in choosing what each of the generated users does, whether it be selling, music, technology, or any other interest, as well as how they do it: funny, casual, formal, rude, etc.",
		SeedUser:      "Generate exactly {n} user names, usernames, and bios that are all unique and distinct in their interests and purpose.",
		ContentSystem: "You are a personalized content generator.",
		ContentBody: "You are {author_name}. Your bio says: \"{author_bio}\".\n" +
			"You are writing a personalized post, written in a tone and formality level corresponding to your image as described in your bio. This personalized post is directed for a person with the following profile:\n\n" +
			"Name: {target_name}\nUsername: {target_username}\nBio: {target_bio}\n\n" +
			"Age Group: {age_group}\nGender: {gender}\nRace: {race}\nLocation: {location}\nIncome Range: {income_range}\n" +
			"Relationship Status: {relationship_status}\nEducation: {education}\nOccupation: {occupation}\n" +
			"Interests: {interests}\nAdditional Facts: {facts}\n\n",
		ContentTopic: "Post Topic: {topic}\n",
		ContentStyle: "Write a post with this information in mind. If no post topic is specified, talk about something that interests or relates to the target, but make it subtle. Make sure whatever you write about is aligned and natural in both content and style described in your bio. For example, someone whose bio mentions that they're a car salesman should probably speak in a sales-y way and post ads.\n" +
			"Do not explicitly tailor your post for the target user; subtly shape it so that it is aligned to what the target user would like, given their demographics and background.\n" +
			"Speak in a somewhat blase and casual tone, be cold, somewhat rude and very blunt.\n" +
			"Keep your results very short, under 140 characters\n",
		ReplyTopic:      "comment on this tweet: '{body}'\n",
		ReplyImages:     "(there are associated images as well)\n",
		ReplyAlignment:  "Make sure that the content and tone of the output is aligned with your character description given in your bio.",
		ProfileImage:    "A profile picture of a person named {name} whose bio is {bio}",
		BackgroundImage: "A background image for a twitter profile for someone who {bio}",
	}
}

// Load returns the defaults overlaid with any non-empty entries from the YAML
// file at path. An empty path or a missing file yields the defaults.
func Load(path string) (Set, error) {
	set := Default()
	if path == "" {
		return set, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return set, fmt.Errorf("read prompts: %w", err)
	}
	var override Set
	if err := yaml.Unmarshal(data, &override); err != nil {
		return set, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	set.merge(override)
	return set, nil
}

func (s *Set) merge(o Set) {
	pick := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	pick(&s.ProfileSystem, o.ProfileSystem)
	pick(&s.ProfileUser, o.ProfileUser)
	pick(&s.SeedSystem, o.SeedSystem)
	pick(&s.SeedUser, o.SeedUser)
	pick(&s.ContentSystem, o.ContentSystem)
	pick(&s.ContentBody, o.ContentBody)
	pick(&s.ContentTopic, o.ContentTopic)
	pick(&s.ContentStyle, o.ContentStyle)
	pick(&s.ReplyTopic, o.ReplyTopic)
	pick(&s.ReplyImages, o.ReplyImages)
	pick(&s.ReplyAlignment, o.ReplyAlignment)
	pick(&s.ProfileImage, o.ProfileImage)
	pick(&s.BackgroundImage, o.BackgroundImage)
}

// Fill replaces {key} placeholders with values given as key, value pairs.
// Unknown placeholders are left as is.
func Fill(tmpl string, kv ...string) string {
	if len(kv)%2 != 0 {
		kv = append(kv, "")
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
