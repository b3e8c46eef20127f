package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ume-client/models"
)

const (
	pathCities             = "cities/"
	pathCitySearch         = "cities/search"
	pathRegistration       = "registration/"
	pathVerification       = "verification/"
	pathVerificationStatus = "verification/status/"
	pathLogin              = "login/"
	pathMyProfile          = "users/me/"
	pathEditProfile        = "users/me/edit/"
	pathUploadPhotos       = "users/me/photos/"
	pathResetPassword      = "reset-password/"
	pathChangePassword     = "users/change_password/"
)

func (c *Client) ListCities(ctx context.Context) (models.CityList, error) {
	var out models.CityList
	err := c.do(ctx, request{method: http.MethodGet, path: pathCities}, &out)
	return out, err
}

// SearchCities returns the cities whose name starts with query.
func (c *Client) SearchCities(ctx context.Context, query string) (models.CityList, error) {
	var out models.CityList
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   pathCitySearch,
		query:  url.Values{"q": {strings.TrimSpace(query)}},
	}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, payload models.RegistrationPayload) (models.RegistrationResult, error) {
	var out models.RegistrationResult
	body, err := jsonBody(payload)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        pathRegistration,
		body:        body,
		contentType: contentTypeJSON,
	}, &out)
	return out, err
}

// SubmitVerification uploads the avatar and selfie for a registered user in
// one multipart request.
func (c *Client) SubmitVerification(ctx context.Context, sub models.VerificationSubmission) (models.VerificationResult, error) {
	var out models.VerificationResult
	if sub.UserID <= 0 {
		return out, fmt.Errorf("submit verification: invalid user id %d", sub.UserID)
	}
	if !sub.Complete() {
		return out, fmt.Errorf("submit verification: both images are required")
	}

	id := strconv.FormatInt(sub.UserID, 10)
	body, contentType, err := multipartBody(
		map[string]string{"user_id": id},
		[]formFile{
			{field: "avatar", filename: "avatar_user_" + id + ".jpg", path: string(sub.Avatar)},
			{field: "verification_photo", filename: "verification_user_" + id + ".jpg", path: string(sub.Selfie)},
		},
	)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        pathVerification,
		body:        body,
		contentType: contentType,
	}, &out)
	return out, err
}

func (c *Client) VerificationStatus(ctx context.Context, userID int64) (models.StatusResult, error) {
	var out models.StatusResult
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   pathVerificationStatus + strconv.FormatInt(userID, 10),
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, username, password string) (models.LoginResult, error) {
	var out models.LoginResult
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        pathLogin,
		body:        strings.NewReader(form.Encode()),
		contentType: contentTypeForm,
	}, &out)
	return out, err
}

func (c *Client) MyProfile(ctx context.Context) (models.UserProfile, error) {
	var wire models.ProfileWire
	if err := c.do(ctx, request{method: http.MethodGet, path: pathMyProfile, bearer: true}, &wire); err != nil {
		return models.UserProfile{}, err
	}
	return models.AdaptProfile(wire), nil
}

func (c *Client) EditProfile(ctx context.Context, edit models.ProfileEdit) (models.UserProfile, error) {
	body, err := jsonBody(edit.Wire())
	if err != nil {
		return models.UserProfile{}, err
	}
	var wire models.ProfileWire
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        pathEditProfile,
		body:        body,
		contentType: contentTypeJSON,
		bearer:      true,
	}, &wire)
	if err != nil {
		return models.UserProfile{}, err
	}
	return models.AdaptProfile(wire), nil
}

func (c *Client) ResetPassword(ctx context.Context, email string) (models.MessageResult, error) {
	var out models.MessageResult
	body, err := jsonBody(map[string]string{"email": email})
	if err != nil {
		return out, err
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        pathResetPassword,
		body:        body,
		contentType: contentTypeJSON,
	}, &out)
	return out, err
}

func (c *Client) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (models.MessageResult, error) {
	var out models.MessageResult
	body, err := jsonBody(req)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        pathChangePassword,
		body:        body,
		contentType: contentTypeJSON,
	}, &out)
	return out, err
}

// UploadPhotos sends every photo under the repeated "photos" field.
func (c *Client) UploadPhotos(ctx context.Context, photos []models.ImageRef) (models.PhotoUploadResult, error) {
	var out models.PhotoUploadResult
	if len(photos) == 0 {
		return out, fmt.Errorf("upload photos: no photos given")
	}

	// Check the token before opening any file.
	if _, err := c.bearerToken(ctx, pathUploadPhotos); err != nil {
		return out, err
	}

	files := make([]formFile, 0, len(photos))
	for i, photo := range photos {
		files = append(files, formFile{field: "photos", filename: photoFilename(string(photo), i), path: string(photo)})
	}
	body, contentType, err := multipartBody(nil, files)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        pathUploadPhotos,
		body:        body,
		contentType: contentType,
		bearer:      true,
	}, &out)
	return out, err
}
