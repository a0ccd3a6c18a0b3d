package fuzzy

// DefaultNicknames maps common short forms to canonical first names
func DefaultNicknames() map[string][]string {
	return map[string][]string{
		"mike": {"michael"}, "mick": {"michael"}, "mickey": {"michael"},
		"dave": {"david"}, "davey": {"david"},
		"bob": {"robert"}, "bobby": {"robert"}, "rob": {"robert"}, "robbie": {"robert"},
		"bill": {"william"}, "billy": {"william"}, "will": {"william"}, "willie": {"william"},
		"jim": {"james"}, "jimmy": {"james"}, "jamie": {"james"},
		"john": {"jonathan"}, "johnny": {"jonathan"},
		"chris": {"christopher"}, "christie": {"christopher"},
		"katie": {"katherine"}, "kate": {"katherine"}, "kathy": {"katherine"},
		"beth": {"elizabeth"}, "liz": {"elizabeth"}, "lizzie": {"elizabeth"}, "betty": {"elizabeth"},
		"sue": {"susan"}, "susie": {"susan"},
		"tom": {"thomas"}, "tommy": {"thomas"},
		"dan": {"daniel"}, "danny": {"daniel"},
		"matt": {"matthew"}, "matty": {"matthew"},
		"andy": {"andrew"}, "drew": {"andrew"},
		"joe": {"joseph"}, "joey": {"joseph"},
		"sam": {"samuel"}, "sammy": {"samuel"},
	}
}
