package details

type Note struct {
	Text string `json:"text" bson:"text"`
}
