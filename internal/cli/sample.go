package cli

import (
	"fmt"

	"book-duel-service/internal/domain"
)

type sampleBook struct {
	id, title, authorID, author string
	// clues by difficulty: plot, character, opening line or setting
	easy, medium, hard string
}

var sampleBooks = []sampleBook{
	{"bk-pride", "Pride and Prejudice", "au-austen", "Jane Austen",
		"Elizabeth Bennet clashes with the proud Mr. Darcy.",
		"Which book follows the five Bennet sisters of Longbourn?",
		"Which novel opens with a truth universally acknowledged about a single man with a good fortune?"},
	{"bk-moby", "Moby-Dick", "au-melville", "Herman Melville",
		"A sea captain hunts the white whale that took his leg.",
		"Which book is narrated by Ishmael aboard the Pequod?",
		"Which novel begins with the words \"Call me Ishmael\"?"},
	{"bk-hobbit", "The Hobbit", "au-tolkien", "J. R. R. Tolkien",
		"A homebody is swept off to help dwarves reclaim a mountain from a dragon.",
		"Which book sends Bilbo Baggins to face Smaug?",
		"Which story begins in a hole in the ground that was not nasty, dirty or wet?"},
	{"bk-charlotte", "Charlotte's Web", "au-white", "E. B. White",
		"A spider spins words into her web to save a pig.",
		"Which book features Wilbur, Fern and a rat named Templeton?",
		"Which novel opens with a girl asking where Papa is going with that ax?"},
	{"bk-mockingbird", "To Kill a Mockingbird", "au-lee", "Harper Lee",
		"A lawyer defends a Black man falsely accused in a small Alabama town.",
		"Which book is narrated by Scout Finch?",
		"Which novel is set in Maycomb during the Great Depression?"},
	{"bk-frankenstein", "Frankenstein", "au-shelley", "Mary Shelley",
		"A young scientist brings a creature to life and then abandons it.",
		"Which book tells of Victor and the creature he built?",
		"Which novel is framed by Captain Walton's letters from the Arctic?"},
	{"bk-gatsby", "The Great Gatsby", "au-fitzgerald", "F. Scott Fitzgerald",
		"A mysterious millionaire throws lavish parties to win back his lost love.",
		"Which book follows Nick Carraway and his neighbor across the bay from Daisy?",
		"Which novel ends with boats beating on against the current?"},
	{"bk-littlewomen", "Little Women", "au-alcott", "Louisa May Alcott",
		"Four sisters grow up while their father is away at war.",
		"Which book features Meg, Jo, Beth and Amy March?",
		"Which novel opens with a grumble that Christmas won't be Christmas without presents?"},
	{"bk-treasure", "Treasure Island", "au-stevenson", "Robert Louis Stevenson",
		"A boy finds a map and sails off in search of pirate gold.",
		"Which book introduces the one-legged cook Long John Silver?",
		"Which adventure begins at the Admiral Benbow inn?"},
	{"bk-alice", "Alice's Adventures in Wonderland", "au-carroll", "Lewis Carroll",
		"A girl follows a rabbit down a hole into a land of nonsense.",
		"Which book features the Cheshire Cat and the Queen of Hearts?",
		"Which story opens with a girl bored of a book without pictures or conversations?"},
	{"bk-narnia", "The Lion, the Witch and the Wardrobe", "au-lewis", "C. S. Lewis",
		"Four children step through a wardrobe into a land of endless winter.",
		"Which book has Aslan face the White Witch?",
		"Which story starts when Lucy hides during a game of hide-and-seek?"},
	{"bk-matilda", "Matilda", "au-dahl", "Roald Dahl",
		"A brilliant girl discovers she can move things with her mind.",
		"Which book pits Miss Honey's pupil against Miss Trunchbull?",
		"Which novel begins with a complaint about parents who think their child is wonderful?"},
	{"bk-holes", "Holes", "au-sachar", "Louis Sachar",
		"A boy is sent to a desert camp where inmates dig holes every day.",
		"Which book follows Stanley Yelnats at Camp Green Lake?",
		"Which novel opens by noting there is no lake at Camp Green Lake?"},
	{"bk-terabithia", "Bridge to Terabithia", "au-paterson", "Katherine Paterson",
		"Two friends build an imaginary kingdom in the woods.",
		"Which book centers on Jess Aarons and Leslie Burke?",
		"Which novel is reached by swinging across a creek on a rope?"},
	{"bk-giver", "The Giver", "au-lowry", "Lois Lowry",
		"A boy in a seemingly perfect community is chosen to hold its memories.",
		"Which book follows Jonas after his Ceremony of Twelve?",
		"Which novel is set in a community without color, pain or choice?"},
	{"bk-hatchet", "Hatchet", "au-paulsen", "Gary Paulsen",
		"A boy survives alone in the wilderness after a plane crash.",
		"Which book strands Brian Robeson with only a small axe?",
		"Which novel begins with a boy in a bush plane beside a pilot?"},
	{"bk-wrinkle", "A Wrinkle in Time", "au-lengle", "Madeleine L'Engle",
		"Children travel through space to rescue a missing scientist.",
		"Which book sends Meg Murry and Charles Wallace to Camazotz?",
		"Which novel opens on a dark and stormy night?"},
	{"bk-eyre", "Jane Eyre", "au-bronte", "Charlotte Brontë",
		"An orphaned governess falls for her brooding employer.",
		"Which book features Mr. Rochester and Thornfield Hall?",
		"Which novel opens with there being no possibility of taking a walk that day?"},
	{"bk-oliver", "Oliver Twist", "au-dickens", "Charles Dickens",
		"A workhouse orphan falls in with a gang of London pickpockets.",
		"Which book introduces Fagin and the Artful Dodger?",
		"Which novel has a boy asking, \"Please, sir, I want some more\"?"},
	{"bk-sawyer", "The Adventures of Tom Sawyer", "au-twain", "Mark Twain",
		"A mischievous boy on the Mississippi tricks friends into painting a fence.",
		"Which book features Becky Thatcher and Injun Joe?",
		"Which novel is set in the river town of St. Petersburg, Missouri?"},
	{"bk-anne", "Anne of Green Gables", "au-montgomery", "L. M. Montgomery",
		"A talkative orphan is sent by mistake to a farm that wanted a boy.",
		"Which book follows Anne Shirley and Marilla Cuthbert?",
		"Which novel is set in Avonlea on Prince Edward Island?"},
	{"bk-garden", "The Secret Garden", "au-burnett", "Frances Hodgson Burnett",
		"A lonely girl finds a locked garden and brings it back to life.",
		"Which book features Mary Lennox, Dickon and Colin?",
		"Which novel is set at Misselthwaite Manor on the Yorkshire moors?"},
	{"bk-redfern", "Where the Red Fern Grows", "au-rawls", "Wilson Rawls",
		"A boy saves for two years to buy a pair of hunting dogs.",
		"Which book follows Billy and his hounds Old Dan and Little Ann?",
		"Which novel is set in the Ozark Mountains of Oklahoma?"},
	{"bk-dolphins", "Island of the Blue Dolphins", "au-odell", "Scott O'Dell",
		"A girl survives alone for years on an island off California.",
		"Which book follows Karana and her dog Rontu?",
		"Which novel opens with a red ship appearing off the island of Ghalas-at?"},
}

// SampleBanks builds one bank per difficulty from the built-in book list.
// Every question offers four books and four authors.
func SampleBanks() map[domain.Difficulty]domain.QuestionBank {
	banks := make(map[domain.Difficulty]domain.QuestionBank, 3)
	for _, d := range []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard} {
		bank := domain.QuestionBank{Difficulty: d}
		for i, b := range sampleBooks {
			text := b.easy
			switch d {
			case domain.DifficultyMedium:
				text = b.medium
			case domain.DifficultyHard:
				text = b.hard
			}
			q := domain.Question{
				ID:              fmt.Sprintf("%s-%02d", d, i+1),
				Text:            text,
				CorrectBookID:   b.id,
				CorrectAuthorID: b.authorID,
			}
			for _, off := range []int{0, 5, 11, 17} {
				c := sampleBooks[(i+off)%len(sampleBooks)]
				q.BookChoices = append(q.BookChoices, domain.Choice{ID: c.id, Label: c.title})
				q.AuthorChoices = append(q.AuthorChoices, domain.Choice{ID: c.authorID, Label: c.author})
			}
			bank.Questions = append(bank.Questions, q)
		}
		banks[d] = bank
	}
	return banks
}
