package esa

import (
	"context"
	"fmt"
	"net/http"
)

// Post is the writable part of an esa post.
type Post struct {
	Name      string   `json:"name"`
	BodyMD    string   `json:"body_md"`
	Tags      []string `json:"tags"`
	Category  string   `json:"category"`
	User      string   `json:"user,omitempty"`
	WIP       bool     `json:"wip"`
	CreatedAt string   `json:"created_at,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// PostResult identifies a created or updated post.
type PostResult struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// Comment is the writable part of a comment.
type Comment struct {
	BodyMD    string `json:"body_md"`
	User      string `json:"user,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CommentResult identifies a created comment.
type CommentResult struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// CreatePost creates a post. User and CreatedAt require a team owner token.
func (c *Client) CreatePost(ctx context.Context, post Post) (*PostResult, error) {
	var out PostResult
	err := c.doJSON(ctx, http.MethodPost, c.teamURL("/posts"), map[string]Post{"post": post}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePost replaces the fields of post number.
func (c *Client) UpdatePost(ctx context.Context, number int, post Post) (*PostResult, error) {
	var out PostResult
	url := c.teamURL(fmt.Sprintf("/posts/%d", number))
	if err := c.doJSON(ctx, http.MethodPatch, url, map[string]Post{"post": post}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateComment adds a comment to post number.
func (c *Client) CreateComment(ctx context.Context, number int, comment Comment) (*CommentResult, error) {
	var out CommentResult
	url := c.teamURL(fmt.Sprintf("/posts/%d/comments", number))
	if err := c.doJSON(ctx, http.MethodPost, url, map[string]Comment{"comment": comment}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
