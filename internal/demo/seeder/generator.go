package seeder

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

const (
	DatasetRetail  = "retail"
	DatasetCinema  = "cinema"
	DatasetApparel = "apparel"
)

// DatasetNames lists the demo datasets in seeding order. Their tables match
// the curated question/query examples.
var DatasetNames = []string{DatasetRetail, DatasetCinema, DatasetApparel}

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Table is one generated upload. Cell values are int, float64, string,
// time.Time or nil.
type Table struct {
	Name   string
	Format string
	Header []string
	Rows   [][]any
}

type Dataset struct {
	DatabaseID string
	Tables     []Table
}

type Generator struct {
	rnd   *rand.Rand
	scale int
	epoch time.Time
}

func NewGenerator(seed int64, scale int) *Generator {
	if scale <= 0 {
		scale = 1
	}
	return &Generator{
		rnd:   rand.New(rand.NewSource(seed)),
		scale: scale,
		epoch: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (g *Generator) Dataset(name string) (Dataset, error) {
	switch name {
	case DatasetRetail:
		return g.retail(), nil
	case DatasetCinema:
		return g.cinema(), nil
	case DatasetApparel:
		return g.apparel(), nil
	default:
		return Dataset{}, fmt.Errorf("unknown demo dataset %q", name)
	}
}

var (
	firstNames = []string{"Aarav", "Priya", "Rohan", "Ananya", "Vikram", "Meera", "Kabir", "Isha", "Arjun", "Neha", "Sanjay", "Kavya"}
	lastNames  = []string{"Sharma", "Patel", "Iyer", "Reddy", "Khan", "Gupta", "Nair", "Das", "Mehta", "Joshi"}
	cities     = []string{"Mumbai", "Delhi", "Bengaluru", "Chennai", "Pune", "Hyderabad", "Kolkata"}
	stores     = []string{"Andheri", "Connaught Place", "Koramangala", "T Nagar"}
)

type mobile struct {
	brand string
	model string
	price float64
}

var mobiles = []mobile{
	{"Samsung", "Galaxy S23", 74999},
	{"Samsung", "Galaxy A54", 38999},
	{"Apple", "iPhone 14", 69900},
	{"Apple", "iPhone 15 Pro", 134900},
	{"OnePlus", "11R", 39999},
	{"Xiaomi", "Redmi Note 12", 17999},
	{"Google", "Pixel 7a", 43999},
	{"Vivo", "V27", 32999},
}

func (g *Generator) retail() Dataset {
	customerCount := 20 * g.scale
	customers := Table{
		Name:   "customers",
		Format: FormatCSV,
		Header: []string{"customer_id", "name", "city", "email", "joined_on"},
	}
	for id := 1; id <= customerCount; id++ {
		first, last := pickOne(g.rnd, firstNames), pickOne(g.rnd, lastNames)
		var email any
		// Some customers never left an email address.
		if g.rnd.Intn(10) > 0 {
			email = fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), id)
		}
		customers.Rows = append(customers.Rows, []any{
			id, first + " " + last, pickOne(g.rnd, cities), email, g.day(540),
		})
	}

	staffCount := 4 + g.scale
	staff := Table{
		Name:   "staff",
		Format: FormatCSV,
		Header: []string{"staff_id", "name", "store", "hired_on"},
	}
	for id := 1; id <= staffCount; id++ {
		staff.Rows = append(staff.Rows, []any{
			id, pickOne(g.rnd, firstNames) + " " + pickOne(g.rnd, lastNames), stores[(id-1)%len(stores)], g.day(365),
		})
	}

	catalog := Table{
		Name:   "mobiles",
		Format: FormatCSV,
		Header: []string{"mobile_id", "brand", "model", "price"},
	}
	for i, m := range mobiles {
		catalog.Rows = append(catalog.Rows, []any{i + 1, m.brand, m.model, m.price})
	}

	sales := Table{
		Name:   "sales",
		Format: FormatCSV,
		Header: []string{"sale_id", "customer_id", "staff_id", "mobile_id", "quantity", "total_amount", "sold_at"},
	}
	for id := 1; id <= 100*g.scale; id++ {
		mobileIdx := g.rnd.Intn(len(mobiles))
		quantity := 1 + g.rnd.Intn(3)
		sales.Rows = append(sales.Rows, []any{
			id,
			1 + g.rnd.Intn(customerCount),
			1 + g.rnd.Intn(staffCount),
			mobileIdx + 1,
			quantity,
			round2(mobiles[mobileIdx].price * float64(quantity)),
			g.timestamp(540),
		})
	}

	return Dataset{DatabaseID: DatasetRetail, Tables: []Table{customers, staff, catalog, sales}}
}

var (
	titleWords = []string{"Silent", "Crimson", "Last", "Midnight", "Broken", "Golden", "Hidden", "Eternal"}
	titleNouns = []string{"Harbor", "Empire", "Signal", "Garden", "Frontier", "Echo", "Monsoon", "Circuit"}
	genres     = []string{"Action", "Drama", "Comedy", "Thriller", "Sci-Fi", "Romance"}
	actors     = []string{"Irrfan Khan", "Tabu", "Nawazuddin Siddiqui", "Vidya Balan", "Rajkummar Rao", "Konkona Sen Sharma", "Pankaj Tripathi", "Radhika Apte", "Manoj Bajpayee", "Taapsee Pannu"}
)

func (g *Generator) cinema() Dataset {
	movieCount := 15 * g.scale
	movies := Table{
		Name:   "movies",
		Format: FormatCSV,
		Header: []string{"movie_id", "title", "genre", "release_year"},
	}
	ratings := Table{
		Name:   "ratings",
		Format: FormatCSV,
		Header: []string{"movie_id", "avg_rating", "votes"},
	}
	cast := Table{
		Name:   "moviecast",
		Format: FormatCSV,
		Header: []string{"movie_id", "person_name", "role"},
	}
	for id := 1; id <= movieCount; id++ {
		title := fmt.Sprintf("The %s %s", pickOne(g.rnd, titleWords), pickOne(g.rnd, titleNouns))
		movies.Rows = append(movies.Rows, []any{id, title, pickOne(g.rnd, genres), 2008 + g.rnd.Intn(16)})
		ratings.Rows = append(ratings.Rows, []any{id, math.Round((4+g.rnd.Float64()*5.5)*10) / 10, 500 + g.rnd.Intn(20000)})

		for _, idx := range g.rnd.Perm(len(actors))[:3] {
			cast.Rows = append(cast.Rows, []any{id, actors[idx], "Actor"})
		}
	}
	return Dataset{DatabaseID: DatasetCinema, Tables: []Table{movies, ratings, cast}}
}

var (
	shirtBrands = []string{"Van Huesen", "Levi", "Nike", "Adidas"}
	shirtColors = []string{"Red", "White", "Blue", "Black"}
	shirtSizes  = []string{"XS", "S", "M", "L", "XL"}
)

// apparel tables are written as XLSX workbooks.
func (g *Generator) apparel() Dataset {
	shirts := Table{
		Name:   "t_shirts",
		Format: FormatXLSX,
		Header: []string{"t_shirt_id", "brand", "color", "size", "price", "stock_quantity"},
	}
	discounts := Table{
		Name:   "discounts",
		Format: FormatXLSX,
		Header: []string{"discount_id", "t_shirt_id", "pct_discount"},
	}
	id := 0
	for _, brand := range shirtBrands {
		for _, color := range shirtColors {
			for _, size := range shirtSizes {
				id++
				shirts.Rows = append(shirts.Rows, []any{
					id, brand, color, size, float64(400 + 50*g.rnd.Intn(25)), g.rnd.Intn(80),
				})
				if g.rnd.Intn(2) == 0 {
					discounts.Rows = append(discounts.Rows, []any{len(discounts.Rows) + 1, id, float64(5 * (1 + g.rnd.Intn(8)))})
				}
			}
		}
	}
	return Dataset{DatabaseID: DatasetApparel, Tables: []Table{shirts, discounts}}
}

func (g *Generator) day(withinDays int) time.Time {
	return g.epoch.AddDate(0, 0, g.rnd.Intn(withinDays))
}

func (g *Generator) timestamp(withinDays int) time.Time {
	return g.day(withinDays).Add(time.Duration(9*3600+g.rnd.Intn(12*3600)) * time.Second)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
