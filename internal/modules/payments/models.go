package payments

// Wire types of the hosted checkout gateway API.

type metaMessage struct {
	EndUser  string `json:"enduser"`
	Merchant string `json:"merchant"`
}

type meta struct {
	Result  bool        `json:"result"`
	Message metaMessage `json:"message"`
}

type sessionURL struct {
	Accept           string `json:"accept"`
	Cancel           string `json:"cancel"`
	RedirectOnAccept int    `json:"immediateredirecttoaccept"`
}

type sessionOrder struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	VATAmount int64  `json:"vatamount"`
	Currency  string `json:"currency"`
}

type createSessionBody struct {
	Order sessionOrder `json:"order"`
	URL   sessionURL   `json:"url"`
}

type createSessionReply struct {
	Token *string `json:"token"`
	URL   *string `json:"url"`
	Meta  *meta   `json:"meta"`
}
