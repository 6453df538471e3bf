package domain

type Board struct {
	Id          BoardId   `json:"id"`
	Name        BoardName `json:"name"`
	Description string    `json:"description"`
}

// DefaultBoards is the board list every deployment starts with.
var DefaultBoards = []Board{
	{Id: "b", Name: "Random", Description: "Random discussion"},
	{Id: "a", Name: "Anime", Description: "Anime & Manga discussion"},
	{Id: "sanrio", Name: "Sanrio", Description: "Discussion about Sanrio characters, cartoons, products, and their universes"},
	{Id: "vocal", Name: "Vocaloid-like", Description: "Discussion about Vocal and Singing software, characters, songs, products, and their universes"},
	{Id: "pol", Name: "Politics", Description: "Political discussion"},
	{Id: "g", Name: "Technology", Description: "Technology discussion"},
	{Id: "p", Name: "Photography", Description: "Photography discussion"},
	{Id: "hen", Name: "*NSFW* Hentai", Description: "*NSFW* First-party porn of Anime and Manga characters"},
	{Id: "r34", Name: "*NSFW* r34", Description: "*NSFW* If it exists, there's porn of it. Third-party porn of cartoons, anime, and manga."},
	{Id: "coom", Name: "*NSFW* Coomer Zone", Description: "*NSFW* Porn of anything and everything legal, including real people."},
	{Id: "wtf", Name: "*NSFW* WTF", Description: `*NSFW* Shit that makes you mad, sad, or just makes you go "wtf"`},
	{Id: "foss", Name: "Open Source", Description: "Talk about open source projects and software"},
	{Id: "sci", Name: "Science", Description: "Science discussion"},
	{Id: "art", Name: "Art", Description: "Art discussion"},
	{Id: "moozie", Name: "Music", Description: "Music discussion"},
	{Id: "srcleak", Name: "Source Code Leaks", Description: "Leaks of source code, programming documentation, and other technical documents"},
	{Id: "leak", Name: "Random Leaks", Description: "Leaks of anything and everything, including but not limited to source code."},
	{Id: "food", Name: "Food", Description: "Food discussion"},
	{Id: "game", Name: "Video Games", Description: "Video Game discussion"},
	{Id: "appl", Name: "Apple", Description: "Talk about the joys of Apple products, services, and the company."},
}
