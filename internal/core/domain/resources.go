package domain

func bound(v float64) *float64 { return &v }

var byNewest = []SortField{{Field: FieldCreatedAt, Descending: true}}

var byDateThenNewest = []SortField{
	{Field: "date", Descending: true},
	{Field: FieldCreatedAt, Descending: true},
}

const defaultCategory = "Général"

var Bookings = ResourceSchema{
	Name:       "bookings",
	Collection: "bookings",
	Label:      "Booking",
	Fields: []FieldSpec{
		{Name: "user_id", Type: FieldRef},
		{Name: "service_id", Type: FieldRef},
		{Name: "pricing_package_id", Type: FieldRef},
		{Name: "customer_name", Type: FieldString, Required: true, Trim: true},
		{Name: "email", Type: FieldString, Required: true, Trim: true, Lowercase: true},
		{Name: "phone", Type: FieldString, Required: true},
		{Name: "service_type", Type: FieldString, Required: true},
		{Name: "destination", Type: FieldString},
		{Name: "departure_date", Type: FieldString, Required: true},
		{Name: "return_date", Type: FieldString},
		{Name: "number_of_travelers", Type: FieldInteger, Min: bound(1), Default: 1},
		{Name: "status", Type: FieldString, Enum: []string{"pending", "confirmed", "cancelled", "completed"}, Default: "pending"},
		{Name: "payment_status", Type: FieldString, Enum: []string{"pending", "approved", "paid", "failed"}, Default: "pending"},
		{Name: "notes", Type: FieldString},
		{Name: "total_amount", Type: FieldNumber},
		{Name: "currency", Type: FieldString, Default: DefaultCurrency},
		{Name: "package_currency", Type: FieldString},
		{Name: "price_snapshot", Type: FieldNumber},
	},
	Sort: byNewest,
}

var Testimonials = ResourceSchema{
	Name:       "testimonials",
	Collection: "testimonials",
	Label:      "Testimonial",
	Fields: []FieldSpec{
		{Name: "customer_name", Type: FieldString, Required: true, Trim: true},
		{Name: "customer_image", Type: FieldString},
		{Name: "service", Type: FieldString, Required: true},
		{Name: "comment", Type: FieldString, Required: true},
		{Name: "rating", Type: FieldInteger, Required: true, Min: bound(1), Max: bound(5)},
		{Name: "date", Type: FieldString, DefaultToday: true},
		{Name: "verified", Type: FieldBool, Default: false},
	},
	Sort: byDateThenNewest,
}

var BlogPosts = ResourceSchema{
	Name:       "blog",
	Collection: "blog_posts",
	Label:      "Blog post",
	Fields: []FieldSpec{
		{Name: "title", Type: FieldString, Required: true, Trim: true},
		{Name: "excerpt", Type: FieldString},
		{Name: "content", Type: FieldString, Required: true},
		{Name: "author", Type: FieldString, Default: "Silianos Voyage"},
		{Name: "image", Type: FieldString},
		{Name: "category", Type: FieldString, Default: defaultCategory},
		{Name: "tags", Type: FieldStringList, Default: []string{}},
		{Name: "published", Type: FieldBool, Default: true},
		{Name: "date", Type: FieldString, DefaultToday: true},
	},
	Sort: byDateThenNewest,
}

var Messages = ResourceSchema{
	Name:       "messages",
	Collection: "contact_messages",
	Label:      "Message",
	Fields: []FieldSpec{
		{Name: "name", Type: FieldString, Required: true, Trim: true},
		{Name: "email", Type: FieldString, Required: true, Trim: true, Lowercase: true},
		{Name: "phone", Type: FieldString},
		{Name: "subject", Type: FieldString, Required: true},
		{Name: "message", Type: FieldString, Required: true},
		{Name: "status", Type: FieldString, Enum: []string{"new", "read", "replied"}, Default: "new"},
	},
	Sort: byNewest,
}

var GalleryImages = ResourceSchema{
	Name:       "gallery",
	Collection: "gallery_images",
	Label:      "Image",
	Fields: []FieldSpec{
		{Name: "title", Type: FieldString, Required: true, Trim: true},
		{Name: "image", Type: FieldString, Required: true},
		{Name: "description", Type: FieldString},
		{Name: "category", Type: FieldString, Default: defaultCategory},
		{Name: "date", Type: FieldString, DefaultToday: true},
	},
	Sort: byDateThenNewest,
}

var Services = ResourceSchema{
	Name:       "services",
	Collection: "services",
	Label:      "Service",
	Fields: []FieldSpec{
		{Name: "title", Type: FieldString, Required: true, Trim: true},
		{Name: "description", Type: FieldString, Required: true},
		{Name: "about", Type: FieldString},
		{Name: "image", Type: FieldString, Required: true},
		{Name: "price", Type: FieldNumber, Min: bound(0), Default: 0},
		{Name: "currency", Type: FieldString, Default: DefaultCurrency},
		{Name: "country", Type: FieldString},
		{Name: "start_date", Type: FieldString},
		{Name: "end_date", Type: FieldString},
		{Name: "duration_days", Type: FieldInteger, Min: bound(1)},
		{Name: "features", Type: FieldStringList, Default: []string{}},
		{Name: "benefits", Type: FieldStringList, Default: []string{}},
		{Name: "status", Type: FieldString, Enum: []string{"active", "inactive"}, Default: "active"},
		{Name: "display_order", Type: FieldInteger, Default: 0},
	},
	ListFilter: map[string]any{"status": "active"},
	Sort:       byNewest,
}

var PricingPackages = ResourceSchema{
	Name:       "pricing",
	Collection: "pricing_packages",
	Label:      "Pricing package",
	Fields: []FieldSpec{
		{Name: "title", Type: FieldString, Required: true, Trim: true},
		{Name: "description", Type: FieldString},
		{Name: "price", Type: FieldNumber, Required: true, Min: bound(0)},
		{Name: "currency", Type: FieldString, Default: "DT"},
		{Name: "period", Type: FieldString},
		{Name: "start_date", Type: FieldString},
		{Name: "end_date", Type: FieldString},
		{Name: "image", Type: FieldString},
		{Name: "badge", Type: FieldString},
		{Name: "features", Type: FieldStringList, Default: []string{}},
		{Name: "is_active", Type: FieldBool, Default: true},
	},
	ListFilter: map[string]any{"is_active": true},
	Sort:       byNewest,
}
