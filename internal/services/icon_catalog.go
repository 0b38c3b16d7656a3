package services

type systemIcon struct {
	Name     string
	Key      string
	Category string
}

// systemIcons is the built-in icon set. Keys name glyphs in the frontend icon library.
var systemIcons = []systemIcon{
	{"Dashboard", "LayoutDashboard", "Navigation"},
	{"Home", "Home", "Navigation"},
	{"Settings", "Settings", "Navigation"},
	{"Menu", "Menu", "Navigation"},
	{"List", "List", "Navigation"},

	{"File", "FileText", "Files"},
	{"Folder", "Folder", "Files"},
	{"Download", "Download", "Files"},
	{"Upload", "Upload", "Files"},
	{"Save", "Save", "Files"},

	{"Plus", "Plus", "Actions"},
	{"Edit", "Edit", "Actions"},
	{"Trash", "Trash2", "Actions"},
	{"Eye", "Eye", "Actions"},
	{"Refresh", "RefreshCw", "Actions"},
	{"Search", "Search", "Actions"},
	{"Filter", "Filter", "Actions"},

	{"Globe", "Globe", "Applications"},
	{"Store", "Store", "Applications"},
	{"Database", "Database", "Applications"},
	{"Server", "Server", "Applications"},
	{"Cloud", "Cloud", "Applications"},
	{"Monitor", "Monitor", "Applications"},
	{"Smartphone", "Smartphone", "Applications"},

	{"Mail", "Mail", "Communication"},
	{"Message", "MessageSquare", "Communication"},
	{"Bell", "Bell", "Communication"},
	{"Phone", "Phone", "Communication"},

	{"Lock", "Lock", "Security"},
	{"Shield", "Shield", "Security"},
	{"Key", "Key", "Security"},

	{"User", "User", "Users"},
	{"Users", "Users", "Users"},

	{"Check Circle", "CheckCircle", "Status"},
	{"X Circle", "XCircle", "Status"},
	{"Alert Circle", "AlertCircle", "Status"},
	{"Info", "Info", "Status"},

	{"Image", "Image", "Media"},
	{"Video", "Video", "Media"},
	{"Music", "Music", "Media"},
	{"Camera", "Camera", "Media"},

	{"Code", "Code", "Development"},
	{"Terminal", "Terminal", "Development"},
	{"Cog", "Cog", "Development"},
	{"Wrench", "Wrench", "Development"},
}
