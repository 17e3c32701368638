// Package model defines the values exchanged with the content service.
package model

import "time"

// Profile is a public view of a user. Following is relative to the current
// viewer and is meaningless without a session.
type Profile struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

// User is the authenticated user's own record.
type User struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
	Token    string `json:"token,omitempty"`
}

// Profile returns the public profile of the user as seen by themselves.
func (u User) Profile() Profile {
	return Profile{Username: u.Username, Bio: u.Bio, Image: u.Image}
}

// Session exists only while authenticated.
type Session struct {
	Token string
	User  User
}

// Article is a snapshot of a published article.
type Article struct {
	ID             string    `json:"id,omitempty"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	TagList        []string  `json:"tagList"`
	Favorited      bool      `json:"favorited"`
	FavoritesCount int       `json:"favoritesCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Author         Profile   `json:"author"`
}

// Comment belongs to a single article thread.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    Profile   `json:"author"`
}

// ArticleList is one page of a filtered article listing.
type ArticleList struct {
	Articles      []Article `json:"articles"`
	ArticlesCount int       `json:"articlesCount"`
}

// ListParams are the filters accepted by the article list endpoints.
// Zero values are omitted from the request.
type ListParams struct {
	Tag       string
	Author    string
	Favorited string
	Limit     int
	Offset    int
}

// NewArticle is the payload for creating an article.
type NewArticle struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	TagList     []string `json:"tagList"`
}

// ArticleUpdate is a partial update; nil fields are not sent.
type ArticleUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Body        *string   `json:"body,omitempty"`
	TagList     *[]string `json:"tagList,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u ArticleUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Body == nil && u.TagList == nil
}

// UserUpdate is a partial update of the current user; nil fields are not sent.
type UserUpdate struct {
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Image    *string `json:"image,omitempty"`
}

// Credentials are used for login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is used to create an account.
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}
