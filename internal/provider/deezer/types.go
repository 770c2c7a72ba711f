package deezer

// searchResponse is the JSON response from the Deezer artist search endpoint.
type searchResponse struct {
	Data  []artistResult `json:"data"`
	Total int            `json:"total"`
	Next  string         `json:"next,omitempty"`
	Error *apiError      `json:"error,omitempty"`
}

// artistResult is a single artist entry from a Deezer search.
type artistResult struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Link          string `json:"link"`
	Picture       string `json:"picture"`
	PictureMedium string `json:"picture_medium"`
	PictureBig    string `json:"picture_big"`
	PictureXL     string `json:"picture_xl"`
	NbFan         int    `json:"nb_fan"`
	Type          string `json:"type"`
}

// apiError is the error object Deezer returns with a 200 status.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// quotaExceeded is the Deezer error code for too many requests.
const quotaExceeded = 4
