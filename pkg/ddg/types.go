package ddg

import "math/rand/v2"

// ImageResponse is the result of an image search.
type ImageResponse struct {
	Query   string  `json:"query"`
	Results []Image `json:"results"`
}

// CacheTypeID keeps cache keys stable across package moves.
func (ImageResponse) CacheTypeID() string { return "ddg.ImageResponse" }

// Random picks one result. The second value is false when there are none.
func (r ImageResponse) Random() (Image, bool) {
	if len(r.Results) == 0 {
		return Image{}, false
	}
	return r.Results[rand.IntN(len(r.Results))], true
}

// Image is one image search result.
type Image struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"` // page the image was found on
	Source string `json:"source"`
	Title  string `json:"title"`
	Image  string `json:"image"` // the image itself
}

// ImageURL returns the URL of the image file.
func (i Image) ImageURL() string {
	return i.Image
}

// Answer is a memoized instant answer.
type Answer struct {
	Query string `json:"query"`
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
}

func (Answer) CacheTypeID() string { return "ddg.Answer" }

// instantAnswer is the subset of the instant answer API we read.
type instantAnswer struct {
	Heading      string `json:"Heading"`
	AbstractText string `json:"AbstractText"`
	AbstractURL  string `json:"AbstractURL"`
}
