package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"synthpop/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLStore talks to the Supabase-shaped schema through database/sql. Queries
// are written with ? placeholders and rebound for Postgres. List columns
// (images, interests, facts) use the Postgres array literal in both dialects.
type SQLStore struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQLStore)(nil)

// Open connects with the given driver ("postgres" or "sqlite").
func Open(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return NewSQLStore(db, driver), nil
}

// NewSQLStore wraps an existing handle.
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// rebind turns ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, q string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(q), args...)
}

func (s *SQLStore) query(ctx context.Context, q string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(q), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, q string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(q), args...)
}

func kindClause(kind models.Kind) string {
	if kind == models.KindSynthetic {
		return `provider = ?`
	}
	return `COALESCE(provider, '') <> ?`
}

func (s *SQLStore) CountActors(ctx context.Context, kind models.Kind) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM "User" WHERE ` + kindClause(kind)
	if err := s.queryRow(ctx, q, models.SyntheticProvider).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s actors: %w", kind, err)
	}
	return n, nil
}

func (s *SQLStore) ListActorIDs(ctx context.Context, kind models.Kind, limit int) ([]string, error) {
	q := `SELECT id FROM "User" WHERE ` + kindClause(kind)
	args := []interface{}{models.SyntheticProvider}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s actors: %w", kind, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan actor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) ActorKinds(ctx context.Context, ids []string) ([]models.ActorKind, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT id, COALESCE(provider, '') FROM "User" WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("actor kinds: %w", err)
	}
	defer rows.Close()
	var out []models.ActorKind
	for rows.Next() {
		var id, provider string
		if err := rows.Scan(&id, &provider); err != nil {
			return nil, fmt.Errorf("scan actor kind: %w", err)
		}
		out = append(out, models.ActorKind{ID: id, Kind: models.KindOf(provider)})
	}
	return out, rows.Err()
}

const actorColumns = `id, username, name, bio, provider, "profileImage", "bgImage", badge, "followersCount", "followingCount", "createdAt"`

func (s *SQLStore) GetActor(ctx context.Context, id string) (models.Actor, error) {
	var a models.Actor
	var name, bio, provider, profileImage, bgImage, badge sql.NullString
	err := s.queryRow(ctx, `SELECT `+actorColumns+` FROM "User" WHERE id = ?`, id).Scan(
		&a.ID, &a.Username, &name, &bio, &provider, &profileImage, &bgImage, &badge,
		&a.FollowersCount, &a.FollowingCount, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Actor{}, fmt.Errorf("actor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Actor{}, fmt.Errorf("get actor %s: %w", id, err)
	}
	a.Name, a.Bio, a.Provider = name.String, bio.String, provider.String
	a.ProfileImage, a.BackgroundImage, a.Badge = profileImage.String, bgImage.String, badge.String
	return a, nil
}

func (s *SQLStore) InsertActor(ctx context.Context, a models.Actor) error {
	_, err := s.exec(ctx, `INSERT INTO "User" (`+actorColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.Name, a.Bio, a.Provider,
		nullString(a.ProfileImage), nullString(a.BackgroundImage), nullString(a.Badge),
		a.FollowersCount, a.FollowingCount, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert actor %s: %w", a.ID, err)
	}
	return nil
}

const profileColumns = `id, "userId", "ageGroup", gender, race, location, "incomeRange", "relationshipStatus", education, occupation, interests, facts`

func (s *SQLStore) GetProfile(ctx context.Context, actorID string) (models.Profile, error) {
	var p models.Profile
	var age, gender, race, location, income sql.NullString
	var relationship, education, occupation sql.NullString
	var interests, facts pq.StringArray
	err := s.queryRow(ctx, `SELECT `+profileColumns+` FROM "UserProfile" WHERE "userId" = ?`, actorID).Scan(
		&p.ID, &p.ActorID, &age, &gender, &race, &location, &income,
		&relationship, &education, &occupation, &interests, &facts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, fmt.Errorf("profile for %s: %w", actorID, ErrNotFound)
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile for %s: %w", actorID, err)
	}
	p.AgeGroup, p.Gender, p.Race, p.Location = age.String, gender.String, race.String, location.String
	p.IncomeRange, p.RelationshipStatus = income.String, relationship.String
	p.Education, p.Occupation = education.String, occupation.String
	p.Interests, p.Facts = []string(interests), []string(facts)
	return p, nil
}

func (s *SQLStore) InsertProfile(ctx context.Context, p models.Profile) error {
	_, err := s.exec(ctx, `INSERT INTO "UserProfile" (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ActorID, p.AgeGroup, p.Gender, p.Race, p.Location, p.IncomeRange,
		p.RelationshipStatus, p.Education, p.Occupation,
		stringArray(p.Interests), stringArray(p.Facts),
	)
	if err != nil {
		return fmt.Errorf("insert profile for %s: %w", p.ActorID, err)
	}
	return nil
}

func (s *SQLStore) UpdateProfile(ctx context.Context, p models.Profile) error {
	res, err := s.exec(ctx, `UPDATE "UserProfile" SET "ageGroup" = ?, gender = ?, race = ?, location = ?, "incomeRange" = ?, "relationshipStatus" = ?, education = ?, occupation = ?, interests = ?, facts = ? WHERE "userId" = ?`,
		p.AgeGroup, p.Gender, p.Race, p.Location, p.IncomeRange,
		p.RelationshipStatus, p.Education, p.Occupation,
		stringArray(p.Interests), stringArray(p.Facts), p.ActorID,
	)
	if err != nil {
		return fmt.Errorf("update profile for %s: %w", p.ActorID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("profile for %s: %w", p.ActorID, ErrNotFound)
	}
	return nil
}

const postColumns = `id, "userId", body, images, "likeCount", "retweetCount", "replyCount", "createdAt"`

func scanPost(sc interface{ Scan(...interface{}) error }) (models.Post, error) {
	var (
		p      models.Post
		body   sql.NullString
		images pq.StringArray
	)
	if err := sc.Scan(&p.ID, &p.AuthorID, &body, &images, &p.LikeCount, &p.RetweetCount, &p.ReplyCount, &p.CreatedAt); err != nil {
		return models.Post{}, err
	}
	p.Body = body.String
	p.Images = []string(images)
	return p, nil
}

func (s *SQLStore) GetPost(ctx context.Context, id string) (models.Post, error) {
	p, err := scanPost(s.queryRow(ctx, `SELECT `+postColumns+` FROM "Tweet" WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("get post %s: %w", id, err)
	}
	return p, nil
}

func (s *SQLStore) RecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	q := `SELECT ` + postColumns + ` FROM "Tweet" ORDER BY "createdAt" DESC`
	var args []interface{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.posts(ctx, q, args...)
}

func (s *SQLStore) PostsByActor(ctx context.Context, actorID string, limit int) ([]models.Post, error) {
	q := `SELECT ` + postColumns + ` FROM "Tweet" WHERE "userId" = ? ORDER BY "createdAt" DESC`
	args := []interface{}{actorID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.posts(ctx, q, args...)
}

func (s *SQLStore) posts(ctx context.Context, q string, args ...interface{}) ([]models.Post, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()
	var out []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) RepliesByActor(ctx context.Context, actorID string, limit int) ([]models.Reply, error) {
	q := `SELECT r.id, r."userId", r."tweetId", r.body, r.images, r."createdAt", t.id, t.body, t.images
		FROM "Reply" r LEFT JOIN "Tweet" t ON t.id = r."tweetId"
		WHERE r."userId" = ? ORDER BY r."createdAt" DESC`
	args := []interface{}{actorID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query replies: %w", err)
	}
	defer rows.Close()
	var out []models.Reply
	for rows.Next() {
		var r models.Reply
		var body, parentID, parentBody sql.NullString
		var images, parentImages pq.StringArray
		if err := rows.Scan(&r.ID, &r.AuthorID, &r.PostID, &body, &images, &r.CreatedAt, &parentID, &parentBody, &parentImages); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		r.Body = body.String
		r.Images = []string(images)
		if parentID.Valid {
			r.Parent = &models.Post{ID: parentID.String, Body: parentBody.String, Images: []string(parentImages)}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) LikesByActor(ctx context.Context, actorID string, limit int) ([]models.Like, error) {
	q := `SELECT l.id, l."userId", l."tweetId", l."createdAt", t.id, t.body, t.images
		FROM "Like" l LEFT JOIN "Tweet" t ON t.id = l."tweetId"
		WHERE l."userId" = ? ORDER BY l."createdAt" DESC`
	args := []interface{}{actorID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer rows.Close()
	var out []models.Like
	for rows.Next() {
		var l models.Like
		var postID, postBody sql.NullString
		var postImages pq.StringArray
		if err := rows.Scan(&l.ID, &l.ActorID, &l.PostID, &l.CreatedAt, &postID, &postBody, &postImages); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		if postID.Valid {
			l.Post = &models.Post{ID: postID.String, Body: postBody.String, Images: []string(postImages)}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLStore) InsertPost(ctx context.Context, p models.Post) error {
	_, err := s.exec(ctx, `INSERT INTO "Tweet" (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AuthorID, p.Body, stringArray(p.Images), p.LikeCount, p.RetweetCount, p.ReplyCount, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert post %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLStore) SetPostCounter(ctx context.Context, postID string, c Counter, value int) error {
	switch c {
	case CounterLikes, CounterRetweets, CounterReplies:
	default:
		return fmt.Errorf("unknown counter %q", c)
	}
	res, err := s.exec(ctx, `UPDATE "Tweet" SET "`+string(c)+`" = ? WHERE id = ?`, value, postID)
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", c, postID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) InsertReply(ctx context.Context, r models.Reply) error {
	_, err := s.exec(ctx, `INSERT INTO "Reply" (id, "userId", "tweetId", body, images, "createdAt") VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.AuthorID, r.PostID, r.Body, stringArray(r.Images), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reply %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLStore) InsertLike(ctx context.Context, l models.Like) error {
	_, err := s.exec(ctx, `INSERT INTO "Like" (id, "userId", "tweetId", "createdAt") VALUES (?, ?, ?, ?)`,
		l.ID, l.ActorID, l.PostID, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert like %s: %w", l.ID, err)
	}
	return nil
}

func (s *SQLStore) InsertRetweet(ctx context.Context, r models.Retweet) error {
	_, err := s.exec(ctx, `INSERT INTO "Retweet" (id, "userId", "tweetId", "retweetDate") VALUES (?, ?, ?, ?)`,
		r.ID, r.ActorID, r.PostID, r.RetweetDate,
	)
	if err != nil {
		return fmt.Errorf("insert retweet %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLStore) InsertBookmark(ctx context.Context, b models.Bookmark) error {
	_, err := s.exec(ctx, `INSERT INTO "Bookmark" (id, "userId", "tweetId", "createdAt") VALUES (?, ?, ?, ?)`,
		b.ID, b.ActorID, b.PostID, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bookmark %s: %w", b.ID, err)
	}
	return nil
}

func (s *SQLStore) PostActivity(ctx context.Context) ([]models.Activity, error) {
	return s.activity(ctx, `SELECT "userId", "createdAt" FROM "Tweet" ORDER BY "createdAt" DESC`)
}

func (s *SQLStore) ReplyActivity(ctx context.Context) ([]models.Activity, error) {
	return s.activity(ctx, `SELECT "userId", "createdAt" FROM "Reply" ORDER BY "createdAt" DESC`)
}

func (s *SQLStore) activity(ctx context.Context, q string) ([]models.Activity, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()
	var out []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ActorID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringArray(v []string) pq.StringArray {
	if v == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(v)
}
