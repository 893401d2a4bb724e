package main

import (
	"context"

	kibela2esa "github.com/alnah/go-kibela2esa"
	"github.com/alnah/go-kibela2esa/internal/esa"
	"github.com/alnah/go-kibela2esa/internal/kibela"
)

// Compile-time interface implementation checks.
var (
	_ kibela2esa.Destination    = (*esaDestination)(nil)
	_ kibela2esa.RedirectLookup = (*kibela.Client)(nil)
)

// esaDestination adapts the esa client to kibela2esa.Destination.
type esaDestination struct {
	client *esa.Client
}

func toPost(p kibela2esa.PostPayload) esa.Post {
	return esa.Post{
		Name:      p.Name,
		BodyMD:    p.BodyMD,
		Tags:      p.Tags,
		Category:  p.Category,
		User:      p.User,
		WIP:       p.WIP,
		CreatedAt: p.CreatedAt,
		Message:   p.Message,
	}
}

func (d *esaDestination) CreatePost(ctx context.Context, p kibela2esa.PostPayload) (*kibela2esa.PostResponse, error) {
	res, err := d.client.CreatePost(ctx, toPost(p))
	if err != nil {
		return nil, err
	}
	return &kibela2esa.PostResponse{Number: res.Number, URL: res.URL}, nil
}

func (d *esaDestination) UpdatePost(ctx context.Context, number int, p kibela2esa.PostPayload) (*kibela2esa.PostResponse, error) {
	res, err := d.client.UpdatePost(ctx, number, toPost(p))
	if err != nil {
		return nil, err
	}
	return &kibela2esa.PostResponse{Number: res.Number, URL: res.URL}, nil
}

func (d *esaDestination) CreateComment(ctx context.Context, number int, p kibela2esa.CommentPayload) (*kibela2esa.CommentResponse, error) {
	res, err := d.client.CreateComment(ctx, number, esa.Comment{
		BodyMD:    p.BodyMD,
		User:      p.User,
		CreatedAt: p.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	return &kibela2esa.CommentResponse{ID: res.ID, URL: res.URL}, nil
}

func (d *esaDestination) UploadAttachment(ctx context.Context, path string) (*kibela2esa.UploadResponse, error) {
	res, err := d.client.UploadAttachment(ctx, path)
	if err != nil {
		return nil, err
	}
	return &kibela2esa.UploadResponse{Error: res.Error, Message: res.Message, URL: res.URL}, nil
}
