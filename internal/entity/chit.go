package entity

import "fmt"

type Category string

const (
	CategoryFruits  Category = "Fruits"
	CategoryCars    Category = "Cars"
	CategoryAnimals Category = "Animals"
	CategoryColors  Category = "Colors"
)

const (
	ChitsPerCategory = 4
	HandSize         = 4
)

// Categories lists the closed set of chit categories in deal order.
var Categories = []Category{CategoryFruits, CategoryCars, CategoryAnimals, CategoryColors}

type chitFace struct {
	name  string
	emoji string
}

var chitFaces = map[Category][ChitsPerCategory]chitFace{
	CategoryFruits:  {{"Apple", "🍎"}, {"Banana", "🍌"}, {"Orange", "🍊"}, {"Grapes", "🍇"}},
	CategoryCars:    {{"Sedan", "🚗"}, {"SUV", "🚙"}, {"Sports", "🏎️"}, {"Truck", "🚚"}},
	CategoryAnimals: {{"Lion", "🦁"}, {"Elephant", "🐘"}, {"Tiger", "🐅"}, {"Bear", "🐻"}},
	CategoryColors:  {{"Red", "🔴"}, {"Blue", "🔵"}, {"Green", "🟢"}, {"Yellow", "🟡"}},
}

// Chit is an immutable game token. Chits only ever move between hands.
type Chit struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Emoji    string   `json:"emoji"`
}

// AllChits returns the fixed 16-chit universe, grouped by category.
func AllChits() []Chit {
	chits := make([]Chit, 0, len(Categories)*ChitsPerCategory)

	for _, category := range Categories {
		for i, face := range chitFaces[category] {
			chits = append(chits, Chit{
				ID:       fmt.Sprintf("%s-%d", category, i),
				Category: category,
				Name:     face.name,
				Emoji:    face.emoji,
			})
		}
	}

	return chits
}
